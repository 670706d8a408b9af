package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a ShadowScript error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrInvalidPath        ErrorCode = "INVALID_PATH"        // 400
	ErrWrongType          ErrorCode = "WRONG_TYPE"          // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrParentNotFound     ErrorCode = "PARENT_NOT_FOUND"    // 404
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"      // 409
	ErrNotRegistered      ErrorCode = "NOT_REGISTERED"      // 412
	ErrQuotaExceeded      ErrorCode = "QUOTA_EXCEEDED"      // 413
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE" // 503
)

// ShadowError represents a structured error with code, status, and details.
type ShadowError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *ShadowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ShadowError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ShadowError {
	return &ShadowError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidPath creates a 400 error for an empty or malformed path.
func NewInvalidPath(path, reason string) *ShadowError {
	return &ShadowError{
		Code:    ErrInvalidPath,
		Status:  400,
		Message: fmt.Sprintf("invalid path %q: %s", path, reason),
		Details: map[string]any{"path": path},
	}
}

// NewWrongType creates a 400 error when a path names the wrong kind of node.
// want is "file" or "directory".
func NewWrongType(path, want string) *ShadowError {
	return &ShadowError{
		Code:    ErrWrongType,
		Status:  400,
		Message: fmt.Sprintf("path is not a %s: %s", want, path),
		Details: map[string]any{"path": path, "want": want},
	}
}

// NewNotFound creates a 404 error for a missing path or entry.
func NewNotFound(path string) *ShadowError {
	return &ShadowError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewParentNotFound creates a 404 error when the parent directory of path does not exist.
func NewParentNotFound(path string) *ShadowError {
	return &ShadowError{
		Code:    ErrParentNotFound,
		Status:  404,
		Message: fmt.Sprintf("parent directory does not exist: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewAlreadyExists creates a 409 error when a sibling with the same name exists.
func NewAlreadyExists(path string) *ShadowError {
	return &ShadowError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("already exists: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotRegistered creates a 412 error for a mutation on a path that is not hauntable.
func NewNotRegistered(path string) *ShadowError {
	return &ShadowError{
		Code:    ErrNotRegistered,
		Status:  412,
		Message: fmt.Sprintf("file not registered for haunting: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewQuotaExceeded creates a 413 error when the tree outgrows the storage quota.
func NewQuotaExceeded(max, actual int64) *ShadowError {
	return &ShadowError{
		Code:   ErrQuotaExceeded,
		Status: 413,
		Message: fmt.Sprintf("storage limit exceeded: %.2fMB / %.2fMB; consider deleting unused files",
			float64(actual)/1024/1024, float64(max)/1024/1024),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewStorageUnavailable creates a 503 error wrapping a failure of the backing store.
func NewStorageUnavailable(err error) *ShadowError {
	msg := "storage unavailable"
	if err != nil {
		msg = fmt.Sprintf("storage unavailable: %v", err)
	}
	return &ShadowError{
		Code:    ErrStorageUnavailable,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ShadowError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ShadowError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a ShadowError with the given code.
// ErrNotFound also matches ErrParentNotFound: a missing parent is a missing entry.
func Is(err error, code ErrorCode) bool {
	var sErr *ShadowError
	if !stderrors.As(err, &sErr) {
		return false
	}
	if sErr.Code == code {
		return true
	}
	return code == ErrNotFound && sErr.Code == ErrParentNotFound
}

// CodeOf returns the code of err, or ErrInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var sErr *ShadowError
	if stderrors.As(err, &sErr) {
		return sErr.Code
	}
	return ErrInternal
}
