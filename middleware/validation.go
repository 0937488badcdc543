package middleware

import (
	"context"

	apperrors "github.com/kbukum/mizzle/errors"
)

// ValidationResult is the verdict of a Validator.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validator checks the data payload of a write.
type Validator func(ctx context.Context, data any, op Operation) (ValidationResult, error)

// DefaultValidatedOperations returns create, update, updateById and updateMany.
func DefaultValidatedOperations() []Operation {
	return []Operation{OpCreate, OpUpdate, OpUpdateByID, OpUpdateMany}
}

// ValidationConfig configures the Validation policy.
type ValidationConfig struct {
	Validator Validator
	// Operations lists the validated operations. Nil uses DefaultValidatedOperations.
	Operations []Operation
}

// Validation returns a policy that rejects invalid data before the operation
// runs. Calls whose operation is not listed, or that carry no data, pass
// through untouched. A rejected call fails with *errors.ValidationError and
// next is never called.
func Validation(cfg ValidationConfig) Middleware {
	if cfg.Operations == nil {
		cfg.Operations = DefaultValidatedOperations()
	}
	validated := newOperationSet(cfg.Operations)

	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		if cfg.Validator == nil || !validated.has(mc.Operation) || mc.Data == nil {
			return next(ctx)
		}

		res, err := cfg.Validator(ctx, mc.Data, mc.Operation)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, apperrors.NewValidationError(res.Errors)
		}
		return next(ctx)
	}
}
