package pipeline

import (
	"context"

	"github.com/kbukum/mizzle/middleware"
)

// Executor performs the real storage operation described by mc. It is the
// terminal of every chain.
type Executor interface {
	Execute(ctx context.Context, mc *middleware.Context) (any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, mc *middleware.Context) (any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, mc *middleware.Context) (any, error) {
	return f(ctx, mc)
}
