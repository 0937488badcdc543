package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kbukum/mizzle/middleware"
)

// CollectionOption configures a Collection.
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	definition    any
	middlewares   []middleware.Middleware
	captureOldDoc bool
}

// WithDefinition attaches the schema descriptor forwarded on every Context.
func WithDefinition(def any) CollectionOption {
	return func(o *collectionOptions) { o.definition = def }
}

// WithCollectionMiddleware adds middlewares to every call made through this
// handle. They run after the registry's collection scope and before the
// call scope.
func WithCollectionMiddleware(mws ...middleware.Middleware) CollectionOption {
	return func(o *collectionOptions) { o.middlewares = append(o.middlewares, mws...) }
}

// WithOldDocCapture loads the current document before single-document
// updates and deletes so policies can see it in Context.OldDoc.
func WithOldDocCapture() CollectionOption {
	return func(o *collectionOptions) { o.captureOldDoc = true }
}

// CallOption configures one call.
type CallOption func(*callOptions)

type callOptions struct {
	middlewares []middleware.Middleware
	session     *middleware.Session
	options     any
}

// WithMiddleware adds call-scoped middlewares, innermost of all scopes.
func WithMiddleware(mws ...middleware.Middleware) CallOption {
	return func(o *callOptions) { o.middlewares = append(o.middlewares, mws...) }
}

// WithSession attaches the request context (user, request id).
func WithSession(s *middleware.Session) CallOption {
	return func(o *callOptions) { o.session = s }
}

// WithOptions passes driver-specific options (sort, limit, projection).
func WithOptions(opts any) CallOption {
	return func(o *callOptions) { o.options = opts }
}

// Collection is a typed handle on one named collection. Every method builds
// a Context and runs it through the registry.
type Collection[T any] struct {
	name string
	reg  *Registry
	exec Executor
	opts collectionOptions
}

// NewCollection creates a handle. A nil reg uses an empty Registry.
func NewCollection[T any](reg *Registry, name string, exec Executor, opts ...CollectionOption) *Collection[T] {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &Collection[T]{name: name, reg: reg, exec: exec}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Create inserts data and returns the stored document.
func (c *Collection[T]) Create(ctx context.Context, data any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpCreate, nil, data, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// FindOne returns the first match, or nil.
func (c *Collection[T]) FindOne(ctx context.Context, filter any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpFindOne, filter, nil, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// FindByID returns the document with the given id, or nil.
func (c *Collection[T]) FindByID(ctx context.Context, id any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpFindByID, id, nil, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// FindMany returns every match.
func (c *Collection[T]) FindMany(ctx context.Context, filter any, opts ...CallOption) ([]T, error) {
	res, err := c.run(ctx, middleware.OpFindMany, filter, nil, opts)
	if err != nil {
		return nil, err
	}
	return decodeMany[T](res)
}

// Count returns the number of matches.
func (c *Collection[T]) Count(ctx context.Context, filter any, opts ...CallOption) (int64, error) {
	res, err := c.run(ctx, middleware.OpCount, filter, nil, opts)
	if err != nil {
		return 0, err
	}
	return toInt64(res)
}

// Aggregate runs an aggregation pipeline. stages is passed as the filter.
func (c *Collection[T]) Aggregate(ctx context.Context, stages any, opts ...CallOption) ([]map[string]any, error) {
	res, err := c.run(ctx, middleware.OpAggregate, stages, nil, opts)
	if err != nil {
		return nil, err
	}
	if rows, ok := res.([]map[string]any); ok {
		return rows, nil
	}
	var rows []map[string]any
	if err := roundTrip(res, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Update modifies the first match and returns the updated document.
func (c *Collection[T]) Update(ctx context.Context, filter, data any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpUpdate, filter, data, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// UpdateByID modifies the document with the given id.
func (c *Collection[T]) UpdateByID(ctx context.Context, id, data any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpUpdateByID, id, data, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// UpdateMany modifies every match and returns the number modified.
func (c *Collection[T]) UpdateMany(ctx context.Context, filter, data any, opts ...CallOption) (int64, error) {
	res, err := c.run(ctx, middleware.OpUpdateMany, filter, data, opts)
	if err != nil {
		return 0, err
	}
	return toInt64(res)
}

// Delete removes the first match and returns it.
func (c *Collection[T]) Delete(ctx context.Context, filter any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpDelete, filter, nil, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// DeleteByID removes the document with the given id and returns it.
func (c *Collection[T]) DeleteByID(ctx context.Context, id any, opts ...CallOption) (*T, error) {
	res, err := c.run(ctx, middleware.OpDeleteByID, id, nil, opts)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](res)
}

// DeleteMany removes every match and returns the number removed.
func (c *Collection[T]) DeleteMany(ctx context.Context, filter any, opts ...CallOption) (int64, error) {
	res, err := c.run(ctx, middleware.OpDeleteMany, filter, nil, opts)
	if err != nil {
		return 0, err
	}
	return toInt64(res)
}

// SoftDelete marks every match as deleted and returns the number marked.
func (c *Collection[T]) SoftDelete(ctx context.Context, filter any, opts ...CallOption) (int64, error) {
	res, err := c.run(ctx, middleware.OpSoftDelete, filter, nil, opts)
	if err != nil {
		return 0, err
	}
	return toInt64(res)
}

func (c *Collection[T]) run(ctx context.Context, op middleware.Operation, filter, data any, opts []CallOption) (any, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	mc := middleware.NewContext(c.name, op,
		middleware.WithFilter(filter),
		middleware.WithData(data),
		middleware.WithOptions(co.options),
		middleware.WithSession(co.session),
		middleware.WithCollectionDef(c.opts.definition),
	)

	if c.opts.captureOldDoc {
		if err := c.captureOldDoc(ctx, mc); err != nil {
			return nil, err
		}
	}

	callScoped := make([]middleware.Middleware, 0, len(c.opts.middlewares)+len(co.middlewares))
	callScoped = append(callScoped, c.opts.middlewares...)
	callScoped = append(callScoped, co.middlewares...)
	return c.reg.Execute(ctx, mc, c.exec, callScoped...)
}

// captureOldDoc reads the target document directly through the executor,
// outside the middleware chain.
func (c *Collection[T]) captureOldDoc(ctx context.Context, mc *middleware.Context) error {
	var lookup middleware.Operation
	switch mc.Operation {
	case middleware.OpUpdate, middleware.OpDelete:
		lookup = middleware.OpFindOne
	case middleware.OpUpdateByID, middleware.OpDeleteByID:
		lookup = middleware.OpFindByID
	default:
		return nil
	}
	if c.exec == nil {
		return nil
	}

	read := middleware.NewContext(c.name, lookup,
		middleware.WithFilter(mc.Filter),
		middleware.WithSession(mc.Session),
		middleware.WithCollectionDef(mc.CollectionDef),
	)
	old, err := c.exec.Execute(ctx, read)
	if err != nil {
		return fmt.Errorf("loading current %s document: %w", c.name, err)
	}
	mc.OldDoc = old
	return nil
}

func decodeOne[T any](v any) (*T, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *T:
		if val == nil {
			return nil, nil
		}
		cp := *val
		return &cp, nil
	case T:
		return &val, nil
	}
	var out T
	if err := roundTrip(v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeMany[T any](v any) ([]T, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []T:
		out := make([]T, len(val))
		copy(out, val)
		return out, nil
	case []*T:
		out := make([]T, 0, len(val))
		for _, item := range val {
			if item != nil {
				out = append(out, *item)
			}
		}
		return out, nil
	}
	var out []T
	if err := roundTrip(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// roundTrip converts a generic shape (maps, driver documents, cached JSON)
// into dst.
func roundTrip(v, dst any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %T result: %w", v, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding result into %T: %w", dst, err)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("expected a count, got %T", v)
}
