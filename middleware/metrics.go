package middleware

import (
	"context"
	"time"

	apperrors "github.com/kbukum/mizzle/errors"
	"github.com/kbukum/mizzle/observability"
)

// Metrics returns a policy recording count, duration and failures of every
// call. A nil m disables it.
func Metrics(m *observability.Metrics) Middleware {
	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		if m == nil {
			return next(ctx)
		}

		collection, op := mc.Collection, string(mc.Operation)
		m.RecordOperationStart(ctx, collection, op)
		start := time.Now()

		result, err := next(ctx)

		elapsed := time.Since(start)
		if err != nil {
			m.RecordOperation(ctx, collection, op, observability.StatusError, elapsed)
			m.RecordError(ctx, collection, op, errorCode(err))
			return result, err
		}
		m.RecordOperation(ctx, collection, op, observability.StatusOK, elapsed)
		return result, nil
	}
}

func errorCode(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	if _, ok := apperrors.AsValidationError(err); ok {
		return string(apperrors.ErrCodeValidationFailed)
	}
	return string(apperrors.ErrCodeInternal)
}
