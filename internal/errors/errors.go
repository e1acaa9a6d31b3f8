// Package errors carries the error taxonomy shared by the dev backend's
// storage layer and its HTTP handlers.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an application error.
type ErrorCode string

const (
	// ErrCodeNotFound marks a missing resource.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict marks a collision with existing data, typically a
	// unique constraint.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation marks invalid input.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal marks an unexpected server-side failure.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout marks a deadline overrun.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled marks a canceled operation.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError pairs an ErrorCode with a human-readable message and an optional
// cause. It unwraps for errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input field on validation errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound builds a not-found error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Conflict builds a conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation builds a validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Internal builds an internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports whether err carries ErrCodeNotFound.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict reports whether err carries ErrCodeConflict.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation reports whether err carries ErrCodeValidation.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}
