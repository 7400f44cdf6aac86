// Package errors provides standardized error handling for the ATS API.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeDependencyFailure ErrorCode = "DEPENDENCY_FAILURE"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a structured application error that maps onto an
// HTTP status code.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError[%s]: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code onto the status code the API responds with.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError reports missing or malformed required input.
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:      ErrCodeValidation,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationErrorf is NewValidationError with formatting.
func NewValidationErrorf(format string, args ...interface{}) *APIError {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(details string) *APIError {
	return &APIError{
		Code:      ErrCodeUnauthorized,
		Message:   "Unauthorized",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenError reports an authenticated caller whose role is not permitted.
func NewForbiddenError(details string) *APIError {
	return &APIError{
		Code:      ErrCodeForbidden,
		Message:   "Forbidden",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports a referenced entity that does not exist.
func NewNotFoundError(entity, id string) *APIError {
	return &APIError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", entity),
		Details:   id,
		Timestamp: time.Now().UTC(),
	}
}

// NewDependencyFailureError reports an object-store or notification call that
// failed. The dependency's message is attached for diagnostics.
func NewDependencyFailureError(dependency string, err error) *APIError {
	return &APIError{
		Code:      ErrCodeDependencyFailure,
		Message:   fmt.Sprintf("Dependency '%s' failed", dependency),
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError reports an unexpected or persistence failure.
func NewInternalError(message string, err error) *APIError {
	e := &APIError{
		Code:      ErrCodeInternal,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// ==========================
// 3. Utility Functions
// ==========================

// AsAPIError normalizes any error to an APIError. Unknown errors become
// INTERNAL_ERROR with the original message in Details.
func AsAPIError(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return &APIError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err is an APIError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == code
}
