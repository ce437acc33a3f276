// Package apperrors provides chained application errors that carry an HTTP status code
// and, for validation failures, the name of the offending input field. Errors are built
// from package-level sentinels so callers can match them with errors.Is.
package apperrors

// Error extends the standard error interface with chaining, status codes and field tagging.
// All methods that return Error leave the receiver untouched.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error    // fresh error that matches the receiver via errors.Is
	Msg(msg string) Error    // new message, receiver and its wrapped errors kept in the chain
	Err(errs ...error) Error // same message, additional causes attached
	MsgErr(msg string, errs ...error) Error
	SetStatusCode(code int) Error
	StatusCode() int
	SetField(field string) Error // names the input field the error refers to
	Field() string
	ErrorAll() string // message followed by every wrapped cause
}
