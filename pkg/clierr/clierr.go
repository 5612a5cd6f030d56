package clierr

import "errors"

// Type buckets a user-facing error so commands can pick consistent wording
// and, eventually, exit codes.
type Type string

const (
	Validation Type = "validation"
	NotFound   Type = "not_found"
	Auth       Type = "auth"
	Booking    Type = "booking"
	Download   Type = "download"
	Internal   Type = "internal"
)

// Error pairs a message meant for the terminal with its underlying cause.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// TypeOf reports the category of err when it is, or wraps, an *Error.
// Anything else counts as Internal.
func TypeOf(err error) Type {
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr.Type
	}
	return Internal
}
