package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/mizzle/middleware"
	"github.com/kbukum/mizzle/worker"
)

// Registry holds the global and per-collection middleware scopes.
// It is safe for concurrent use; each call works on a snapshot.
type Registry struct {
	mu          sync.RWMutex
	global      []middleware.Middleware
	collections map[string][]middleware.Middleware

	// pool is set when the registry created its own runner.
	pool *worker.Pool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		collections: make(map[string][]middleware.Middleware),
	}
}

// Use appends global middlewares.
func (r *Registry) Use(mws ...middleware.Middleware) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, mws...)
	return r
}

// UseFor appends middlewares for one collection.
func (r *Registry) UseFor(collection string, mws ...middleware.Middleware) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[collection] = append(r.collections[collection], mws...)
	return r
}

// Chain returns global ++ collection ++ callScoped as a new slice.
func (r *Registry) Chain(collection string, callScoped ...middleware.Middleware) []middleware.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scoped := r.collections[collection]
	chain := make([]middleware.Middleware, 0, len(r.global)+len(scoped)+len(callScoped))
	chain = append(chain, r.global...)
	chain = append(chain, scoped...)
	chain = append(chain, callScoped...)
	return chain
}

// Execute runs the chain for mc.Collection around exec. A nil exec resolves
// to (nil, nil) once every middleware has called next.
func (r *Registry) Execute(ctx context.Context, mc *middleware.Context, exec Executor, callScoped ...middleware.Middleware) (any, error) {
	if mc.StartedAt.IsZero() {
		mc.StartedAt = time.Now()
	}
	if mc.Metadata == nil {
		mc.Metadata = make(map[string]any)
	}

	var terminal middleware.Next
	if exec != nil {
		terminal = func(ctx context.Context) (any, error) {
			return exec.Execute(ctx, mc)
		}
	}
	return middleware.Execute(ctx, mc, terminal, r.Chain(mc.Collection, callScoped...)...)
}

// Close releases the worker pool created by NewRegistryFromConfig, waiting
// up to timeout for detached writes to finish. It is a no-op otherwise.
func (r *Registry) Close(timeout time.Duration) error {
	r.mu.Lock()
	pool := r.pool
	r.pool = nil
	r.mu.Unlock()

	if pool == nil {
		return nil
	}
	return pool.Release(timeout)
}
