package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/kbukum/mizzle/middleware"
)

type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(e string) {
	tr.mu.Lock()
	tr.events = append(tr.events, e)
	tr.mu.Unlock()
}

func (tr *trace) mw(name string) middleware.Middleware {
	return func(ctx context.Context, mc *middleware.Context, next middleware.Next) (any, error) {
		tr.add(name + "-before")
		res, err := next(ctx)
		tr.add(name + "-after")
		return res, err
	}
}

func (tr *trace) executor() Executor {
	return ExecutorFunc(func(_ context.Context, mc *middleware.Context) (any, error) {
		tr.add(string(mc.Operation))
		return map[string]any{"id": "1"}, nil
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRegistry_ScopeOrdering(t *testing.T) {
	tr := &trace{}
	reg := NewRegistry().
		Use(tr.mw("A"), tr.mw("B")).
		UseFor("users", tr.mw("C"))

	mc := middleware.NewContext("users", middleware.OpCreate)
	if _, err := reg.Execute(context.Background(), mc, tr.executor()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"A-before", "B-before", "C-before", "create", "C-after", "B-after", "A-after"}
	if !equalStrings(tr.events, want) {
		t.Errorf("expected %v, got %v", want, tr.events)
	}
}

func TestRegistry_CallScopeIsInnermost(t *testing.T) {
	tr := &trace{}
	reg := NewRegistry().Use(tr.mw("G")).UseFor("users", tr.mw("C"))

	mc := middleware.NewContext("users", middleware.OpFindOne)
	_, _ = reg.Execute(context.Background(), mc, tr.executor(), tr.mw("X"))

	want := []string{"G-before", "C-before", "X-before", "findOne", "X-after", "C-after", "G-after"}
	if !equalStrings(tr.events, want) {
		t.Errorf("expected %v, got %v", want, tr.events)
	}
}

func TestRegistry_OtherCollectionSkipsScopedMiddleware(t *testing.T) {
	tr := &trace{}
	reg := NewRegistry().UseFor("users", tr.mw("C"))

	_, _ = reg.Execute(context.Background(), middleware.NewContext("orders", middleware.OpCount), tr.executor())

	if !equalStrings(tr.events, []string{"count"}) {
		t.Errorf("expected only the executor, got %v", tr.events)
	}
}

func TestRegistry_Chain(t *testing.T) {
	noop := func(ctx context.Context, mc *middleware.Context, next middleware.Next) (any, error) {
		return next(ctx)
	}
	reg := NewRegistry().Use(noop, noop).UseFor("users", noop)

	if got := len(reg.Chain("users", noop)); got != 4 {
		t.Errorf("expected 4 links, got %d", got)
	}
	if got := len(reg.Chain("orders")); got != 2 {
		t.Errorf("expected 2 links, got %d", got)
	}

	// the returned slice is a snapshot
	chain := reg.Chain("users")
	reg.Use(noop)
	if len(chain) != 3 {
		t.Errorf("expected snapshot to stay at 3 links, got %d", len(chain))
	}
}

func TestRegistry_ExecuteInitialisesContext(t *testing.T) {
	reg := NewRegistry()
	mc := &middleware.Context{Collection: "users", Operation: middleware.OpFindMany}

	res, err := reg.Execute(context.Background(), mc, nil)
	if err != nil || res != nil {
		t.Errorf("expected (nil, nil) without an executor, got (%v, %v)", res, err)
	}
	if mc.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}
	if mc.Metadata == nil {
		t.Error("expected Metadata to be initialised")
	}
}

func TestRegistry_ConcurrentUseAndExecute(t *testing.T) {
	reg := NewRegistry()
	exec := ExecutorFunc(func(context.Context, *middleware.Context) (any, error) { return "ok", nil })
	noop := func(ctx context.Context, mc *middleware.Context, next middleware.Next) (any, error) {
		return next(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.UseFor("users", noop)
		}()
		go func() {
			defer wg.Done()
			if _, err := reg.Execute(context.Background(), middleware.NewContext("users", middleware.OpFindOne), exec); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(reg.Chain("users")); got != 20 {
		t.Errorf("expected 20 registered middlewares, got %d", got)
	}
}

func TestRegistry_OnReadsCounter(t *testing.T) {
	var count int
	counter := func(ctx context.Context, mc *middleware.Context, next middleware.Next) (any, error) {
		count++
		return next(ctx)
	}
	reg := NewRegistry().Use(middleware.OnReads(counter))
	exec := ExecutorFunc(func(context.Context, *middleware.Context) (any, error) { return nil, nil })

	for _, op := range []middleware.Operation{middleware.OpCreate, middleware.OpFindMany, middleware.OpCount} {
		_, _ = reg.Execute(context.Background(), middleware.NewContext("users", op), exec)
	}
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestRegistry_CloseWithoutPool(t *testing.T) {
	if err := NewRegistry().Close(0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
