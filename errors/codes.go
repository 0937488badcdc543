package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline errors
const (
	// ErrCodeInvalidChainUse indicates a middleware invoked next more than once.
	ErrCodeInvalidChainUse ErrorCode = "INVALID_CHAIN_USE"
	// ErrCodeValidationFailed indicates a payload was rejected before reaching storage.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrCodeUnsupportedOperation indicates an executor cannot run the requested operation.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeConnectionFailed indicates a failed connection to the storage engine.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the storage call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeStorage indicates the storage engine reported a failure.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested document was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the document.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// ErrCodeInternal indicates an unexpected internal failure.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
	ErrCodeStorage:          true,
	ErrCodeInternal:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
