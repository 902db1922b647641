package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an Authors Voice error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrPermissionDenied      ErrorCode = "PERMISSION_DENIED"      // 403
	ErrNotFound              ErrorCode = "NOT_FOUND"              // 404
	ErrMalformedBackup       ErrorCode = "MALFORMED_BACKUP"       // 422
	ErrInternal              ErrorCode = "INTERNAL"               // 500
	ErrServiceError          ErrorCode = "SERVICE_ERROR"          // 502
	ErrCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE" // 503
	ErrStorageUnavailable    ErrorCode = "STORAGE_UNAVAILABLE"    // 503
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewPermissionDenied creates a 403 error when the user refused access to the
// microphone or the recognition service.
func NewPermissionDenied(code string) *AppError {
	return &AppError{
		Code:    ErrPermissionDenied,
		Status:  403,
		Message: "microphone or speech service access was denied",
		Details: map[string]any{"code": code},
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(kind, id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewMalformedBackup creates a 422 error for a backup that fails to parse or
// fails structural validation.
func NewMalformedBackup(reason string, cause error) *AppError {
	msg := "malformed backup: " + reason
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Code:    ErrMalformedBackup,
		Status:  422,
		Message: msg,
		Details: map[string]any{"reason": reason},
		cause:   cause,
	}
}

// NewServiceError creates a 502 error for a failure reported by an external
// capability (speech backend error codes, empty model output).
func NewServiceError(detail string) *AppError {
	return &AppError{
		Code:    ErrServiceError,
		Status:  502,
		Message: fmt.Sprintf("service error: %s", detail),
		Details: map[string]any{"detail": detail},
	}
}

// NewCapabilityUnavailable creates a 503 error when the speech or polish
// capability is missing or unreachable.
func NewCapabilityUnavailable(capability string, cause error) *AppError {
	msg := fmt.Sprintf("%s capability unavailable", capability)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Code:    ErrCapabilityUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"capability": capability},
		cause:   cause,
	}
}

// NewStorageUnavailable creates a 503 error when the key-value backend cannot
// be read or written.
func NewStorageUnavailable(cause error) *AppError {
	msg := "storage unavailable"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AppError{
		Code:    ErrStorageUnavailable,
		Status:  503,
		Message: msg,
		cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the AppError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
