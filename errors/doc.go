// Package errors provides the error taxonomy of the mizzle pipeline.
//
// AppError carries a machine-readable code and a retryable flag for storage
// and transient failures. Two errors are raised by the pipeline itself:
// ErrInvalidChainUse when a middleware calls next more than once, and
// ValidationError when the validation policy rejects a payload.
package errors
