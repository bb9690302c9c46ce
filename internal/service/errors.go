package service

import "errors"

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned when registering or creating a user with a taken email.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by lookups of a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when refreshing a session that is no
	// longer live or belongs to another user.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError carries a message safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(message string) error {
	return &ValidationError{Message: message}
}
