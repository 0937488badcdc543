package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// ErrInvalidChainUse is returned by a next continuation that was invoked
// again after it already ran (or while it is still running).
var ErrInvalidChainUse = &AppError{
	Code:    ErrCodeInvalidChainUse,
	Message: "next() called multiple times",
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// NotFound creates a new AppError for a document that was not found.
func NotFound(collection string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("no %s document matched the filter", collection),
		Details: map[string]any{"collection": collection},
	}
}

// Conflict creates a new AppError for a write conflicting with stored state.
func Conflict(reason string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: reason}
}

// Timeout creates a new AppError for a storage call that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timeout", operation),
		Retryable: true, Details: map[string]any{"operation": operation},
	}
}

// ConnectionFailed creates a new AppError for a lost storage connection.
func ConnectionFailed(engine string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("network error talking to %s", engine),
		Retryable: true, Details: map[string]any{"engine": engine}, Cause: cause,
	}
}

// StorageError wraps a failure reported by the storage engine.
func StorageError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: "storage operation failed",
		Retryable: true, Cause: cause,
	}
}

// UnsupportedOperation reports an operation the executor does not implement.
func UnsupportedOperation(operation string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedOperation, Message: fmt.Sprintf("operation %q is not supported", operation),
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetryable reports whether err (or anything it wraps) is an AppError
// flagged as retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
