package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/kbukum/mizzle/errors"
)

func TestCompose_StackDiscipline(t *testing.T) {
	tr := &tracer{}
	mc := NewContext("users", OpCreate)

	res, err := Execute(context.Background(), mc, func(context.Context) (any, error) {
		tr.add("create")
		return "ok", nil
	}, tr.mw("A"), tr.mw("B"), tr.mw("C"))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("expected 'ok', got %v", res)
	}
	want := []string{"A-before", "B-before", "C-before", "create", "C-after", "B-after", "A-after"}
	if !equalStrings(tr.events, want) {
		t.Errorf("expected trace %v, got %v", want, tr.events)
	}
}

func TestCompose_NextTwiceAtAnyPosition(t *testing.T) {
	doubleCaller := func(ctx context.Context, mc *Context, next Next) (any, error) {
		if _, err := next(ctx); err != nil {
			return nil, err
		}
		return next(ctx)
	}
	passThrough := func(ctx context.Context, mc *Context, next Next) (any, error) {
		return next(ctx)
	}

	for pos := 0; pos < 3; pos++ {
		t.Run(fmt.Sprintf("position %d", pos), func(t *testing.T) {
			chain := []Middleware{passThrough, passThrough, passThrough}
			chain[pos] = doubleCaller

			term := &countingTerminal{fn: func(int) (any, error) { return "ok", nil }}
			_, err := Execute(context.Background(), NewContext("users", OpFindMany), term.next, chain...)

			if !errors.Is(err, apperrors.ErrInvalidChainUse) {
				t.Fatalf("expected ErrInvalidChainUse, got %v", err)
			}
			if term.count() != 1 {
				t.Errorf("expected terminal to run once, got %d", term.count())
			}
		})
	}
}

func TestCompose_NextWhileRunning(t *testing.T) {
	var outerNext Next
	outer := func(ctx context.Context, mc *Context, next Next) (any, error) {
		outerNext = next
		return next(ctx)
	}
	inner := func(ctx context.Context, mc *Context, next Next) (any, error) {
		// re-enter the continuation that is currently running us
		return outerNext(ctx)
	}

	term := &countingTerminal{fn: func(int) (any, error) { return "ok", nil }}
	_, err := Execute(context.Background(), NewContext("users", OpFindOne), term.next, outer, inner)

	if !errors.Is(err, apperrors.ErrInvalidChainUse) {
		t.Fatalf("expected ErrInvalidChainUse, got %v", err)
	}
	if term.count() != 0 {
		t.Errorf("expected terminal not to run, got %d", term.count())
	}
}

func TestCompose_ReinvokeAfterFailure(t *testing.T) {
	tr := &tracer{}
	retryOnce := func(ctx context.Context, mc *Context, next Next) (any, error) {
		if res, err := next(ctx); err == nil {
			return res, nil
		}
		return next(ctx)
	}

	term := &countingTerminal{fn: func(call int) (any, error) {
		if call == 1 {
			return nil, errors.New("boom")
		}
		return "ok", nil
	}}

	res, err := Execute(context.Background(), NewContext("users", OpFindOne), term.next, retryOnce, tr.mw("inner"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("expected 'ok', got %v", res)
	}
	want := []string{"inner-before", "inner-after", "inner-before", "inner-after"}
	if !equalStrings(tr.events, want) {
		t.Errorf("expected inner link to run twice, got %v", tr.events)
	}
}

func TestCompose_ShortCircuit(t *testing.T) {
	tr := &tracer{}
	stop := func(ctx context.Context, mc *Context, next Next) (any, error) {
		return "cached", nil
	}
	term := &countingTerminal{fn: func(int) (any, error) { return "fresh", nil }}

	res, err := Execute(context.Background(), NewContext("users", OpFindOne), term.next, tr.mw("A"), stop, tr.mw("C"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "cached" {
		t.Errorf("expected 'cached', got %v", res)
	}
	if term.count() != 0 {
		t.Errorf("expected terminal not to run, got %d", term.count())
	}
	if !equalStrings(tr.events, []string{"A-before", "A-after"}) {
		t.Errorf("unexpected trace %v", tr.events)
	}
}

func TestCompose_NilTerminal(t *testing.T) {
	tr := &tracer{}
	res, err := Execute(context.Background(), NewContext("users", OpCount), nil, tr.mw("A"))
	if err != nil || res != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", res, err)
	}
	if len(tr.events) != 2 {
		t.Errorf("expected the middleware to run, got %v", tr.events)
	}
}

func TestCompose_ReusableAcrossCalls(t *testing.T) {
	composed := Compose(func(ctx context.Context, mc *Context, next Next) (any, error) {
		return next(ctx)
	}, nil)

	term := &countingTerminal{fn: func(call int) (any, error) { return call, nil }}
	for i := 1; i <= 3; i++ {
		res, err := composed(context.Background(), NewContext("users", OpFindOne), term.next)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if res != i {
			t.Errorf("call %d: expected %d, got %v", i, i, res)
		}
	}
}

func TestCompose_ErrorPropagatesUnchanged(t *testing.T) {
	tr := &tracer{}
	storageErr := errors.New("disk full")
	_, err := Execute(context.Background(), NewContext("users", OpCreate), func(context.Context) (any, error) {
		return nil, storageErr
	}, tr.mw("A"), tr.mw("B"))

	if err != storageErr {
		t.Errorf("expected the terminal error, got %v", err)
	}
}

func TestCompose_MetadataSharedAcrossLinks(t *testing.T) {
	outer := func(ctx context.Context, mc *Context, next Next) (any, error) {
		mc.Set("tenant", "acme")
		res, err := next(ctx)
		if v, _ := mc.Get("inner"); v != true {
			t.Error("expected inner write to be visible on the way out")
		}
		return res, err
	}
	inner := func(ctx context.Context, mc *Context, next Next) (any, error) {
		if v, _ := mc.Get("tenant"); v != "acme" {
			t.Error("expected outer write to be visible on the way in")
		}
		mc.Set("inner", true)
		return next(ctx)
	}

	_, _ = Execute(context.Background(), NewContext("users", OpFindMany), nil, outer, inner)
}
