package types

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a failure returned by a public operation
type ErrorKind string

const (
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindUnauthorized ErrorKind = "unauthorized"
	ErrorKindConflict     ErrorKind = "conflict"
	ErrorKindInvalidInput ErrorKind = "invalid_input"
	ErrorKindInternal     ErrorKind = "internal"
)

// ClinicError represents a structured error in the clinic scheduling system
type ClinicError struct {
	Kind    ErrorKind              `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *ClinicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ClinicError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *ClinicError {
	return &ClinicError{
		Kind:    ErrorKindNotFound,
		Code:    code,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(code, message string) *ClinicError {
	return &ClinicError{
		Kind:    ErrorKindUnauthorized,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string, cause error) *ClinicError {
	return &ClinicError{
		Kind:    ErrorKindConflict,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(code, message string, details map[string]interface{}) *ClinicError {
	return &ClinicError{
		Kind:    ErrorKindInvalidInput,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *ClinicError {
	return &ClinicError{
		Kind:    ErrorKindInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the kind of err. Errors that are not a ClinicError are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *ClinicError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrorKindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// AsInternal passes business errors through and wraps anything else as internal
func AsInternal(err error, code, message string) error {
	if err == nil {
		return nil
	}
	var ce *ClinicError
	if errors.As(err, &ce) {
		return ce
	}
	return NewInternalError(code, message, err)
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeDoctorNotFound     = "DOCTOR_NOT_FOUND"
	ErrCodeAppointmentMissing = "APPOINTMENT_NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeSlotUnavailable    = "SLOT_UNAVAILABLE"
	ErrCodeDuplicateEntity    = "DUPLICATE_ENTITY"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)
