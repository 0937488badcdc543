package middleware

import (
	"context"
	"sync"

	apperrors "github.com/kbukum/mizzle/errors"
)

// Next runs the remainder of the chain (or the terminal operation) and
// returns its result.
type Next func(ctx context.Context) (any, error)

// Middleware is the atomic chain link. It may inspect or mutate mc, call
// next at most once (see Compose for the retry exception) and post-process
// the result or error.
type Middleware func(ctx context.Context, mc *Context, next Next) (any, error)

type linkState uint8

const (
	linkIdle linkState = iota
	linkRunning
	linkSucceeded
	linkFailed
)

// cursor is the dispatch state of one invocation of a composed chain.
// Position len(chain) is the terminal.
type cursor struct {
	mu       sync.Mutex
	chain    []Middleware
	mc       *Context
	terminal Next
	states   []linkState
}

// Compose builds a single Middleware from an ordered list. The first
// middleware is the outermost: Compose(a, b, c) runs a, then b when a calls
// next, then c, then the terminal passed to the composed middleware.
//
// Each invocation gets its own dispatch cursor, so the composed value can be
// reused across calls. Calling a next continuation while it is running, or
// after it already returned successfully, fails with
// errors.ErrInvalidChainUse without running anything. A next whose previous
// call failed may be called again: that re-runs every link below it and is
// how the retry policy re-attempts the operation.
func Compose(mws ...Middleware) Middleware {
	chain := make([]Middleware, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			chain = append(chain, mw)
		}
	}

	return func(ctx context.Context, mc *Context, terminal Next) (any, error) {
		c := &cursor{
			chain:    chain,
			mc:       mc,
			terminal: terminal,
			states:   make([]linkState, len(chain)+1),
		}
		return c.dispatch(ctx, 0)
	}
}

// Execute composes mws and runs them around terminal.
func Execute(ctx context.Context, mc *Context, terminal Next, mws ...Middleware) (any, error) {
	return Compose(mws...)(ctx, mc, terminal)
}

func (c *cursor) next(i int) Next {
	return func(ctx context.Context) (any, error) {
		c.mu.Lock()
		switch c.states[i] {
		case linkRunning, linkSucceeded:
			c.mu.Unlock()
			return nil, apperrors.ErrInvalidChainUse
		}
		for j := i + 1; j < len(c.states); j++ {
			c.states[j] = linkIdle
		}
		c.mu.Unlock()

		return c.dispatch(ctx, i)
	}
}

func (c *cursor) dispatch(ctx context.Context, i int) (any, error) {
	c.setState(i, linkRunning)

	var (
		result any
		err    error
	)
	if i == len(c.chain) {
		if c.terminal != nil {
			result, err = c.terminal(ctx)
		}
	} else {
		result, err = c.chain[i](ctx, c.mc, c.next(i+1))
	}

	if err != nil {
		c.setState(i, linkFailed)
	} else {
		c.setState(i, linkSucceeded)
	}
	return result, err
}

func (c *cursor) setState(i int, s linkState) {
	c.mu.Lock()
	c.states[i] = s
	c.mu.Unlock()
}
