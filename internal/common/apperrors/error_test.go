package apperrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("chaining", func(t *testing.T) {
		ErrBase := New("base error")
		assert.Equal(t, "base error", ErrBase.Error())
		assert.ErrorIs(t, ErrBase, ErrBase)

		ErrChild := ErrBase.New("child")
		assert.Equal(t, "child", ErrChild.Error())
		assert.ErrorIs(t, ErrChild, ErrBase)

		ErrOther := New("other")
		wrapped := ErrChild.Err(ErrOther.Msg("other msg"))
		assert.Equal(t, "child", wrapped.Error())
		assert.ErrorIs(t, wrapped, ErrBase)
		assert.ErrorIs(t, wrapped, ErrChild)
		assert.ErrorIs(t, wrapped, ErrOther)

		goErr := errors.New("io failure")
		wrapped = ErrChild.Err(goErr)
		assert.ErrorIs(t, wrapped, goErr)
		assert.Equal(t, "child: io failure", wrapped.ErrorAll())

		msg := ErrChild.Msg("retitled")
		assert.Equal(t, "retitled", msg.Error())
		assert.ErrorIs(t, msg, ErrBase)
	})

	t.Run("nil causes are dropped", func(t *testing.T) {
		err := New("x").Err(nil, fmt.Errorf("y"))
		assert.Equal(t, "x: y", err.ErrorAll())
	})

	t.Run("status code and field", func(t *testing.T) {
		ErrValidation := New("validation failed").SetStatusCode(http.StatusBadRequest)
		ErrEmail := ErrValidation.New("Email is required").SetField("email")
		assert.Equal(t, http.StatusBadRequest, ErrEmail.StatusCode())
		assert.Equal(t, "email", ErrEmail.Field())
		assert.Equal(t, "", ErrValidation.Field())

		wrapped := fmt.Errorf("register: %w", ErrEmail)
		assert.Equal(t, http.StatusBadRequest, StatusCodeOf(wrapped))
		assert.Equal(t, "email", FieldOf(wrapped))
		assert.Equal(t, 0, StatusCodeOf(errors.New("plain")))
		assert.Equal(t, "", FieldOf(nil))
	})
}
