package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg        string
	base       error
	causes     []error
	statusCode int
	field      string
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) ErrorAll() string {
	if len(e.causes) == 0 {
		return e.msg
	}
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.causes {
		if err == e.base {
			continue
		}
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statusCode: e.statusCode,
		field:      e.field,
	}
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append([]error{e}, e.causes...),
		statusCode: e.statusCode,
		field:      e.field,
	}
}

func (e *appError) Err(errs ...error) Error {
	causes := make([]error, 0, len(errs)+1)
	causes = append(causes, e)
	for _, err := range errs {
		if err != nil {
			causes = append(causes, err)
		}
	}
	return &appError{
		msg:        e.msg,
		base:       e,
		causes:     causes,
		statusCode: e.statusCode,
		field:      e.field,
	}
}

// MsgErr is Msg followed by Err.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	next := e.Err(errs...).(*appError)
	next.msg = msg
	return next
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statusCode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statusCode
}

func (e *appError) SetField(field string) Error {
	cp := *e
	cp.field = field
	return &cp
}

func (e *appError) Field() string {
	return e.field
}

// Is matches target against the base chain and every attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if err != e && errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root-level error with the given message.
func New(msg string) Error {
	return &appError{msg: msg}
}

// StatusCodeOf returns the status code of the first Error in err's chain, or 0.
func StatusCodeOf(err error) int {
	var ae Error
	if errors.As(err, &ae) {
		return ae.StatusCode()
	}
	return 0
}

// FieldOf returns the field tag of the first Error in err's chain, or "".
func FieldOf(err error) string {
	var ae Error
	if errors.As(err, &ae) {
		return ae.Field()
	}
	return ""
}
