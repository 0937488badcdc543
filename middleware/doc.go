// Package middleware implements the interceptor chain that wraps every
// data-access operation issued against a collection.
//
// A Middleware receives the per-call Context and a Next continuation. Code
// before next runs on the way in, code after it runs on the way out, and a
// middleware that never calls next short-circuits the call:
//
//	audit := func(ctx context.Context, mc *middleware.Context, next middleware.Next) (any, error) {
//	    result, err := next(ctx)
//	    if err == nil {
//	        log.Info("write", logger.OperationFields(mc.Collection, string(mc.Operation)))
//	    }
//	    return result, err
//	}
//
// Compose turns an ordered list into a single Middleware; the first entry is
// the outermost. The package also ships the built-in policies (Logging,
// Performance, Cache, Audit, Retry, Validation, Metrics, Tracing) and the
// predicate combinators (When, OnReads, OnWrites, OnOperations, OnCollections).
package middleware
