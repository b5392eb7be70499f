// Package apperror defines the error kinds the service layer returns.
//
// Every failure a caller can act on is an *AppError wrapping one of the
// sentinel errors below. Callers branch on the kind with errors.Is and show
// Message to the user. Anything that is not an *AppError is an internal
// failure and must not be shown to the user verbatim.
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
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
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

// NotFoundMsg is NotFound with a caller-chosen message, for places where the
// user-facing wording is fixed ("Donation not found.").
func NotFoundMsg(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMsg is Conflict with a caller-chosen message.
func ConflictMsg(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// InvalidState reports an operation that is not allowed for the target's
// current status, e.g. approving something that is no longer pending.
// The caller can recover by choosing another target; retrying the same call
// without a state change will fail the same way.
func InvalidState(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidState,
		Message: message,
	}
}

// Unauthorized reports missing or wrong credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Kind returns the machine-readable name of err's category, the same string
// the HTTP layer puts in the "error" field. Errors that are not AppErrors
// are "internal_error".
func Kind(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "internal_error"
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "internal_error"
}
