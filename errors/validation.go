package errors

import (
	stderrors "errors"
	"strings"
)

// DefaultValidationMessage is used when a validator rejects a payload
// without explaining why.
const DefaultValidationMessage = "Validation failed"

// ValidationError is returned when the validation policy rejects a payload.
// The real operation never runs when this error is raised.
type ValidationError struct {
	Errors []string `json:"errors"`
}

// NewValidationError creates a ValidationError. An empty list becomes the
// single default message.
func NewValidationError(errs []string) *ValidationError {
	if len(errs) == 0 {
		errs = []string{DefaultValidationMessage}
	}
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// AppError converts the validation failure into the unified error shape.
func (e *ValidationError) AppError() *AppError {
	return New(ErrCodeValidationFailed, strings.Join(e.Errors, "; ")).
		WithDetail("errors", e.Errors)
}

// AsValidationError extracts a ValidationError from err, if present.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if stderrors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
