package session

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/Balram04/assigno/internal/common/apperrors"
)

// ErrInvalidRegistration is returned for a payload that fails the local form checks.
var ErrInvalidRegistration = apperrors.New("invalid registration")

type registration struct {
	FullName        string  `mapstructure:"fullName" validate:"required,min=2"`
	Email           string  `mapstructure:"email" validate:"required,email"`
	Password        string  `mapstructure:"password" validate:"required,min=6,lettersdigits"`
	ConfirmPassword *string `mapstructure:"confirmPassword"`
	Role            string  `mapstructure:"role" validate:"required,oneof=student professor admin"`
	StudentID       string  `mapstructure:"studentId" validate:"required_if=Role student"`
}

// field order in which problems are reported, matching the registration form
var registrationFields = []string{"fullName", "email", "password", "confirmPassword", "role", "studentId"}

var registrationMessages = map[string]string{
	"fullName.required":        "Full name is required",
	"fullName.min":             "Full name must be at least 2 characters",
	"email.required":           "Email is required",
	"email.email":              "Please enter a valid email address",
	"password.required":        "Password is required",
	"password.min":             "Password must be at least 6 characters",
	"password.lettersdigits":   "Password must contain both letters and numbers",
	"confirmPassword.required": "Please confirm your password",
	"confirmPassword.eqfield":  "Passwords do not match",
	"role.required":            "Role is required",
	"role.oneof":               "Role must be student, professor or admin",
	"studentId.required_if":    "Student ID is required",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func registrationValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("mapstructure")
		})
		_ = validate.RegisterValidation("lettersdigits", func(fl validator.FieldLevel) bool {
			var letter, digit bool
			for _, r := range fl.Field().String() {
				switch {
				case r < unicode.MaxASCII && unicode.IsLetter(r):
					letter = true
				case r >= '0' && r <= '9':
					digit = true
				}
			}
			return letter && digit
		})
	})
	return validate
}

// checkRegistration runs the registration form checks against payload and returns the
// body to send: payload unchanged except that confirmPassword is removed.
func checkRegistration(payload map[string]any) (map[string]any, error) {
	var reg registration
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &reg,
	})
	if err != nil {
		return nil, ErrInvalidRegistration.Err(err)
	}
	if err := dec.Decode(payload); err != nil {
		return nil, ErrInvalidRegistration.MsgErr("Registration form is malformed", err)
	}
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.Email = strings.TrimSpace(reg.Email)

	problems := map[string]string{}
	if err := registrationValidator().Struct(reg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, ErrInvalidRegistration.Err(err)
		}
		for _, fe := range verrs {
			if _, seen := problems[fe.Field()]; !seen {
				problems[fe.Field()] = fe.Field() + "." + fe.Tag()
			}
		}
	}
	if reg.ConfirmPassword != nil {
		switch {
		case *reg.ConfirmPassword == "":
			problems["confirmPassword"] = "confirmPassword.required"
		case *reg.ConfirmPassword != reg.Password:
			problems["confirmPassword"] = "confirmPassword.eqfield"
		}
	}

	for _, f := range registrationFields {
		key, bad := problems[f]
		if !bad {
			continue
		}
		msg, ok := registrationMessages[key]
		if !ok {
			msg = "Invalid " + f
		}
		return nil, ErrInvalidRegistration.Msg(msg).SetField(f)
	}

	body := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "confirmPassword" {
			continue
		}
		body[k] = v
	}
	return body, nil
}
