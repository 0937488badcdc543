package middleware

import "context"

// Predicate decides whether a gated middleware applies to a call.
type Predicate func(mc *Context) bool

// When runs mw only for calls matching pred. Other calls go straight to
// next with no side effect.
func When(pred Predicate, mw Middleware) Middleware {
	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		if !pred(mc) {
			return next(ctx)
		}
		return mw(ctx, mc, next)
	}
}

// OnOperations runs mw only for the listed operations.
func OnOperations(ops []Operation, mw Middleware) Middleware {
	set := newOperationSet(ops)
	return When(func(mc *Context) bool { return set.has(mc.Operation) }, mw)
}

// OnReads runs mw only for findOne, findById, findMany, aggregate and count.
func OnReads(mw Middleware) Middleware {
	return When(func(mc *Context) bool { return mc.Operation.IsRead() }, mw)
}

// OnWrites runs mw for every operation that is not a read.
func OnWrites(mw Middleware) Middleware {
	return When(func(mc *Context) bool { return mc.Operation.IsWrite() }, mw)
}

// OnCollections runs mw only for calls against the named collections.
func OnCollections(names []string, mw Middleware) Middleware {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return When(func(mc *Context) bool {
		_, ok := set[mc.Collection]
		return ok
	}, mw)
}
