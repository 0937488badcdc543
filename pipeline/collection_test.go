package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kbukum/mizzle/middleware"
)

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// fakeExecutor answers from a canned table and records every context it sees.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []*middleware.Context
	results map[middleware.Operation]any
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, mc *middleware.Context) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mc)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[mc.Operation], nil
}

func (f *fakeExecutor) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, mc := range f.calls {
		out[i] = string(mc.Operation)
	}
	return out
}

func TestCollection_TypedResults(t *testing.T) {
	exec := &fakeExecutor{results: map[middleware.Operation]any{
		middleware.OpCreate:     &user{ID: "1", Name: "Ada"},
		middleware.OpFindOne:    user{ID: "1", Name: "Ada"},
		middleware.OpFindByID:   map[string]any{"id": "1", "name": "Ada", "email": "ada@example.com"},
		middleware.OpFindMany:   []any{map[string]any{"id": "1"}, map[string]any{"id": "2"}},
		middleware.OpCount:      int64(2),
		middleware.OpAggregate:  []any{map[string]any{"_id": "x", "total": 3}},
		middleware.OpUpdateMany: 4,
		middleware.OpDeleteMany: float64(5),
		middleware.OpSoftDelete: int64(6),
	}}
	users := NewCollection[user](nil, "users", exec)
	ctx := context.Background()

	created, err := users.Create(ctx, user{Name: "Ada"})
	if err != nil || created.Name != "Ada" {
		t.Fatalf("Create: (%v, %v)", created, err)
	}

	one, err := users.FindOne(ctx, map[string]any{"name": "Ada"})
	if err != nil || one.ID != "1" {
		t.Fatalf("FindOne: (%v, %v)", one, err)
	}

	byID, err := users.FindByID(ctx, "1")
	if err != nil || byID.Email != "ada@example.com" {
		t.Fatalf("FindByID via JSON fallback: (%v, %v)", byID, err)
	}

	many, err := users.FindMany(ctx, nil)
	if err != nil || len(many) != 2 || many[1].ID != "2" {
		t.Fatalf("FindMany: (%v, %v)", many, err)
	}

	count, err := users.Count(ctx, nil)
	if err != nil || count != 2 {
		t.Fatalf("Count: (%d, %v)", count, err)
	}

	rows, err := users.Aggregate(ctx, []any{map[string]any{"$group": "x"}})
	if err != nil || len(rows) != 1 || rows[0]["_id"] != "x" {
		t.Fatalf("Aggregate: (%v, %v)", rows, err)
	}

	tests := []struct {
		name string
		call func() (int64, error)
		want int64
	}{
		{"UpdateMany", func() (int64, error) { return users.UpdateMany(ctx, nil, map[string]any{"active": false}) }, 4},
		{"DeleteMany", func() (int64, error) { return users.DeleteMany(ctx, nil) }, 5},
		{"SoftDelete", func() (int64, error) { return users.SoftDelete(ctx, nil) }, 6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := tc.call()
			if err != nil || n != tc.want {
				t.Errorf("expected (%d, nil), got (%d, %v)", tc.want, n, err)
			}
		})
	}
}

func TestCollection_NotFoundIsNil(t *testing.T) {
	users := NewCollection[user](nil, "users", &fakeExecutor{})

	u, err := users.FindOne(context.Background(), map[string]any{"id": "missing"})
	if err != nil || u != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", u, err)
	}
	many, err := users.FindMany(context.Background(), nil)
	if err != nil || many != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", many, err)
	}
}

func TestCollection_ContextFields(t *testing.T) {
	exec := &fakeExecutor{}
	def := map[string]any{"fields": []string{"id", "name"}}
	users := NewCollection[user](nil, "users", exec, WithDefinition(def))

	session := &middleware.Session{User: "u-1", RequestID: "req-1"}
	_, _ = users.UpdateByID(context.Background(), "42", map[string]any{"name": "Grace"},
		WithSession(session), WithOptions(map[string]any{"upsert": true}))

	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(exec.calls))
	}
	mc := exec.calls[0]
	if mc.Collection != "users" || mc.Operation != middleware.OpUpdateByID {
		t.Errorf("unexpected target %s", mc.Name())
	}
	if mc.Filter != "42" || mc.Data.(map[string]any)["name"] != "Grace" {
		t.Errorf("unexpected payloads %v %v", mc.Filter, mc.Data)
	}
	if mc.Session != session || mc.RequestID() != "req-1" {
		t.Error("expected session to be forwarded")
	}
	if mc.Options.(map[string]any)["upsert"] != true {
		t.Errorf("expected options to be forwarded, got %v", mc.Options)
	}
	if mc.CollectionDef == nil {
		t.Error("expected collection definition to be forwarded")
	}
}

func TestCollection_MiddlewareScopes(t *testing.T) {
	tr := &trace{}
	reg := NewRegistry().Use(tr.mw("G")).UseFor("users", tr.mw("C"))
	users := NewCollection[user](reg, "users", tr.executor(), WithCollectionMiddleware(tr.mw("H")))

	_, err := users.Delete(context.Background(), map[string]any{"id": "1"}, WithMiddleware(tr.mw("X")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"G-before", "C-before", "H-before", "X-before",
		"delete",
		"X-after", "H-after", "C-after", "G-after",
	}
	if !equalStrings(tr.events, want) {
		t.Errorf("expected %v, got %v", want, tr.events)
	}
}

func TestCollection_OldDocCapture(t *testing.T) {
	exec := &fakeExecutor{results: map[middleware.Operation]any{
		middleware.OpFindOne:  map[string]any{"id": "1", "name": "before"},
		middleware.OpFindByID: map[string]any{"id": "2", "name": "before-by-id"},
	}}

	var seen []any
	capture := func(ctx context.Context, mc *middleware.Context, next middleware.Next) (any, error) {
		seen = append(seen, mc.OldDoc)
		return next(ctx)
	}
	users := NewCollection[user](nil, "users", exec, WithOldDocCapture(), WithCollectionMiddleware(capture))
	ctx := context.Background()

	_, _ = users.Update(ctx, map[string]any{"id": "1"}, map[string]any{"name": "after"})
	_, _ = users.DeleteByID(ctx, "2")
	_, _ = users.Create(ctx, map[string]any{"name": "new"})

	if got := exec.ops(); !equalStrings(got, []string{"findOne", "update", "findById", "deleteById", "create"}) {
		t.Errorf("unexpected executor calls %v", got)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 chain runs, got %d", len(seen))
	}
	if seen[0].(map[string]any)["name"] != "before" {
		t.Errorf("expected old doc for update, got %v", seen[0])
	}
	if seen[1].(map[string]any)["name"] != "before-by-id" {
		t.Errorf("expected old doc for deleteById, got %v", seen[1])
	}
	if seen[2] != nil {
		t.Errorf("expected no old doc for create, got %v", seen[2])
	}
}

func TestCollection_OldDocCaptureFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("connection refused")}
	users := NewCollection[user](nil, "users", exec, WithOldDocCapture())

	_, err := users.Update(context.Background(), map[string]any{"id": "1"}, map[string]any{})
	if err == nil || !errors.Is(err, exec.err) {
		t.Errorf("expected wrapped capture error, got %v", err)
	}
	if len(exec.calls) != 1 {
		t.Errorf("expected the update not to run, got %d calls", len(exec.calls))
	}
}

func TestCollection_ErrorPropagates(t *testing.T) {
	storageErr := errors.New("disk full")
	users := NewCollection[user](nil, "users", &fakeExecutor{err: storageErr})

	if _, err := users.Create(context.Background(), user{}); err != storageErr {
		t.Errorf("expected storage error, got %v", err)
	}
	if _, err := users.Count(context.Background(), nil); err != storageErr {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{nil, 0, false},
		{int64(7), 7, false},
		{7, 7, false},
		{int32(7), 7, false},
		{uint64(7), 7, false},
		{float64(7), 7, false},
		{"7", 0, true},
	}
	for _, tc := range tests {
		got, err := toInt64(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("toInt64(%v): expected (%d, err=%v), got (%d, %v)", tc.in, tc.want, tc.wantErr, got, err)
		}
	}
}

func TestDecodeMany_Pointers(t *testing.T) {
	out, err := decodeMany[user]([]*user{{ID: "1"}, nil, {ID: "2"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1].ID != "2" {
		t.Errorf("unexpected result %v", out)
	}
}

func TestCollection_CachedDocumentNotAliased(t *testing.T) {
	reg := NewRegistry().Use(middleware.Cache(middleware.CacheConfig{
		Store:  middleware.NewMemoryCacheStore(),
		Runner: syncRunner{},
	}))
	exec := &fakeExecutor{results: map[middleware.Operation]any{
		middleware.OpFindByID: &user{ID: "1", Name: "Ada"},
		middleware.OpFindMany: []user{{ID: "1", Name: "Ada"}},
	}}
	users := NewCollection[user](reg, "users", exec)
	ctx := context.Background()

	first, err := users.FindByID(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	first.Name = "changed"
	second, err := users.FindByID(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if second.Name != "Ada" {
		t.Errorf("expected cached document to be unaffected, got %+v", second)
	}

	many, err := users.FindMany(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	many[0].Name = "changed"
	again, err := users.FindMany(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Name != "Ada" {
		t.Errorf("expected cached list to be unaffected, got %+v", again)
	}
	if got := len(exec.ops()); got != 2 {
		t.Errorf("expected second reads to be cache hits, got %d executor calls", got)
	}
}
