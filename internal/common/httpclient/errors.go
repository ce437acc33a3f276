package httpclient

import (
	"errors"
	"net/http"

	"github.com/Balram04/assigno/internal/common/apperrors"
)

var (
	// ErrCredentialRejected matches every *HTTPError carrying a 401 status.
	ErrCredentialRejected = apperrors.New("credential rejected").SetStatusCode(http.StatusUnauthorized)
	// ErrTransport wraps failures where no response was received.
	ErrTransport = apperrors.New("unable to reach the server")
	// ErrInvalidRequest is returned for requests that cannot be built.
	ErrInvalidRequest = apperrors.New("invalid request").SetStatusCode(http.StatusBadRequest)
)

// HTTPError is a non-2xx response. Message and Field are taken from the {error, field} body.
type HTTPError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrCredentialRejected) detect a 401 from any endpoint.
func (e *HTTPError) Is(target error) bool {
	return target == ErrCredentialRejected && e.StatusCode == http.StatusUnauthorized
}

// IsCredentialRejected reports whether err came from a 401 response.
func IsCredentialRejected(err error) bool {
	return errors.Is(err, ErrCredentialRejected)
}

// ErrorMessage returns the server-provided message for err, or fallback when the error
// carries none (transport failures, unparseable bodies).
func ErrorMessage(err error, fallback string) string {
	var he *HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return fallback
}

// ErrorField returns the offending field named by the server or by client validation.
func ErrorField(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Field
	}
	return apperrors.FieldOf(err)
}

// StatusCode returns the HTTP status of err, or 0 when no response was received.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
