package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid marks input that failed validation.
	ErrInvalid = errors.New("invalid input")
	// ErrConflict marks a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks an actor lacking ownership or role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned when username or password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive is returned for accounts whose status is not ACTIVE.
	ErrInactive = errors.New("account is not active")
)

// ValidationError represents a single validation failure on one field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
