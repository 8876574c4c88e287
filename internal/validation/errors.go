package validation

import (
	"errors"
	"fmt"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid input")

// Error names the offending field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error { return ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}
