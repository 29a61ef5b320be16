package model

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed or incomplete events. Callers must resubmit corrected input.
var ErrValidation = errors.New("validation error")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
