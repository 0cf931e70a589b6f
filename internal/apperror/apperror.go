package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSuchUser and ErrBadCredential refine ErrUnauthorized so callers can
	// tell "that user does not exist" from "password incorrect" while still
	// treating both as one authentication failure.
	ErrNoSuchUser    = fmt.Errorf("%w: no such user", ErrUnauthorized)
	ErrBadCredential = fmt.Errorf("%w: bad credential", ErrUnauthorized)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that a unique value (username, email, post title) is taken.
// field names the conflicting column so forms can point at it.
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with that %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// UnknownUser is returned by credential checks when no account matches the
// username. Handlers map it to 401.
func UnknownUser(username string) *AppError {
	return &AppError{
		Err:     ErrNoSuchUser,
		Message: fmt.Sprintf("user %q does not exist, please try again", username),
		Field:   "username",
	}
}

// BadCredential is returned when the account exists but the password does not match.
func BadCredential() *AppError {
	return &AppError{
		Err:     ErrBadCredential,
		Message: "password incorrect, please try again",
		Field:   "password",
	}
}
