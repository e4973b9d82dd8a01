package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCity      = errors.New("city must not be empty")
	ErrInvalidWeight    = errors.New("weight must be positive")
	ErrInvalidRate      = errors.New("rate must not be negative")
	ErrDuplicateLoadID  = errors.New("duplicate load id")
	ErrInvalidParameter = errors.New("invalid planning parameter")
	ErrNoLoads          = errors.New("at least one load is required")
)

// ValidationError describes one rejected input field.
// Index is the position of the offending load, or -1 for request-level fields.
type ValidationError struct {
	Field string
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("loads[%d].%s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err (or any error joined into it) is a
// ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func fieldError(field string, index int, err error) error {
	return &ValidationError{Field: field, Index: index, Err: err}
}

// ParamError builds a request-level ValidationError.
func ParamError(field string, format string, args ...any) error {
	return &ValidationError{
		Field: field,
		Index: -1,
		Err:   fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...)),
	}
}
