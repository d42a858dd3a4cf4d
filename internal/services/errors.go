package services

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed caller input. Wrapped by ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation so callers can match with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// checkRange validates that value lies in [lo, hi].
func checkRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return invalid(field, "must be between %d and %d, got %d", lo, hi, value)
	}
	return nil
}
