package core

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every ValidationError so callers can use errors.Is
var ErrValidation = errors.New("validation failed")

// ValidationError reports a caller-supplied argument outside its documented domain
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements error
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// IsValidation reports whether err is (or wraps) a validation failure
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ValidateSecurityLevel checks that level is within 1..4
func ValidateSecurityLevel(field string, level int) error {
	if level < MinSecurityLevel || level > MaxSecurityLevel {
		return NewValidationError(field, level,
			fmt.Sprintf("must be between %d and %d", MinSecurityLevel, MaxSecurityLevel))
	}
	return nil
}

// ValidatePurdueLevel checks that level is within 0..5
func ValidatePurdueLevel(field string, level int) error {
	if level < MinPurdueLevel || level > MaxPurdueLevel {
		return NewValidationError(field, level,
			fmt.Sprintf("must be between %d and %d", MinPurdueLevel, MaxPurdueLevel))
	}
	return nil
}
