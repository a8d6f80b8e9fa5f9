package engine

import (
	"context"
	"errors"
	"testing"
)

func newTestRegistries(t *testing.T) (*PebbleRegistry, *CementRegistry) {
	t.Helper()
	pebbles := NewPebbleRegistry(nil, nil)
	cements := NewCementRegistry(pebbles, nil, nil)
	return pebbles, cements
}

// recorderPebble registers a pebble that appends its name to calls.
func recorderPebble(t *testing.T, pebbles *PebbleRegistry, name string, calls *[]string) {
	t.Helper()
	pebbles.Register(context.Background(), Pebble{
		Name: name,
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			*calls = append(*calls, name)
			return nil, nil
		},
	})
}

func TestDefineRejectsUnknownPebble(t *testing.T) {
	t.Parallel()

	_, cements := newTestRegistries(t)
	err := cements.Define(context.Background(), Cement{
		Name:  "broken",
		Steps: []CementStep{{Pebble: "ghost", Order: 1}},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError at definition time, got %v", err)
	}
	if verr.Kind != "cement" || verr.Name != "broken" {
		t.Fatalf("error must name the cement: %+v", verr)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected wrapped NotFoundError, got %v", err)
	}
}

func TestExecuteRunsStepsInSortedOrder(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	var calls []string
	for _, name := range []string{"first", "second", "third", "tie_a", "tie_b"} {
		recorderPebble(t, pebbles, name, &calls)
	}

	// Declared out of order; ties (order 2) must keep declaration order.
	err := cements.Define(context.Background(), Cement{
		Name: "ordered",
		Steps: []CementStep{
			{Pebble: "third", Order: 3},
			{Pebble: "tie_a", Order: 2},
			{Pebble: "first", Order: 1},
			{Pebble: "tie_b", Order: 2},
			{Pebble: "second", Order: 2},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	if _, err := cements.Execute(context.Background(), "ordered", Context{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"first", "tie_a", "tie_b", "second", "third"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call order mismatch at %d: got %v, want %v", i, calls, want)
		}
	}
}

func TestExecuteResolvesContextReferences(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	var got any
	pebbles.Register(context.Background(), Pebble{
		Name: "consume",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			got = args["x"]
			return nil, nil
		},
	})

	err := cements.Define(context.Background(), Cement{
		Name: "refs",
		Steps: []CementStep{
			{Pebble: "consume", Order: 1, Params: ParamsFrom(map[string]any{"x": "$a"})},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	if _, err := cements.Execute(context.Background(), "refs", Context{"a": 5}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected resolved argument 5, got %v", got)
	}
}

func TestExecuteMissingContextKeyFailsBeforeInvoke(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	invoked := false
	pebbles.Register(context.Background(), Pebble{
		Name: "consume",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			invoked = true
			return nil, nil
		},
	})

	err := cements.Define(context.Background(), Cement{
		Name: "refs",
		Steps: []CementStep{
			{Pebble: "consume", Order: 1, Params: ParamsFrom(map[string]any{"x": "$b"})},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	_, err = cements.Execute(context.Background(), "refs", Context{"a": 5})
	var mk *MissingContextKeyError
	if !errors.As(err, &mk) {
		t.Fatalf("expected MissingContextKeyError, got %v", err)
	}
	if invoked {
		t.Fatalf("pebble must not be invoked when a reference is unresolvable")
	}
}

func TestExecuteUnsatisfiedDependencyAbortsCement(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	var calls []string
	recorderPebble(t, pebbles, "guarded", &calls)
	recorderPebble(t, pebbles, "after", &calls)

	err := cements.Define(context.Background(), Cement{
		Name: "deps",
		Steps: []CementStep{
			{Pebble: "guarded", Order: 1, DependsOn: []string{"missing_key"}},
			{Pebble: "after", Order: 2},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	_, err = cements.Execute(context.Background(), "deps", Context{})
	var ud *UnsatisfiedDependencyError
	if !errors.As(err, &ud) {
		t.Fatalf("expected UnsatisfiedDependencyError, got %v", err)
	}
	if ud.Pebble != "guarded" || ud.Key != "missing_key" {
		t.Fatalf("unexpected error fields: %+v", ud)
	}
	if len(calls) != 0 {
		t.Fatalf("no step may run after a dependency failure, got %v", calls)
	}
}

func TestExecuteMergesResultsIntoSharedContext(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	pebbles.Register(context.Background(), Pebble{
		Name: "produce",
		Func: stubPebble(map[string]any{"y": 10}),
	})
	pebbles.Register(context.Background(), Pebble{
		Name: "u1",
		Func: stubPebble(42),
	})

	err := cements.Define(context.Background(), Cement{
		Name: "merge",
		Steps: []CementStep{
			{Pebble: "produce", Order: 1},
			{Pebble: "u1", Order: 2},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	ec, err := cements.Execute(context.Background(), "merge", Context{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ec["y"] != 10 {
		t.Fatalf("expected map result merged by key, got %v", ec)
	}
	if ec["u1"] != 42 {
		t.Fatalf("expected scalar stored under pebble name, got %v", ec)
	}
}

func TestExecuteAbortsOnFirstStepFailure(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	var calls []string
	recorderPebble(t, pebbles, "ok", &calls)
	recorderPebble(t, pebbles, "never", &calls)
	pebbles.Register(context.Background(), Pebble{
		Name: "explode",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("kaboom")
		},
	})

	err := cements.Define(context.Background(), Cement{
		Name: "fails",
		Steps: []CementStep{
			{Pebble: "ok", Order: 1},
			{Pebble: "explode", Order: 2},
			{Pebble: "never", Order: 3},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	ec := Context{}
	_, err = cements.Execute(context.Background(), "fails", ec)
	var perr *PebbleError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PebbleError, got %v", err)
	}
	if len(calls) != 1 || calls[0] != "ok" {
		t.Fatalf("expected only the first step to run, got %v", calls)
	}
}

func TestRedefineCementReplacesDefinition(t *testing.T) {
	t.Parallel()

	pebbles, cements := newTestRegistries(t)
	var calls []string
	recorderPebble(t, pebbles, "old", &calls)
	recorderPebble(t, pebbles, "new", &calls)

	for _, step := range []string{"old", "new"} {
		err := cements.Define(context.Background(), Cement{
			Name:  "c",
			Steps: []CementStep{{Pebble: step, Order: 1}},
		})
		if err != nil {
			t.Fatalf("Define %s: %v", step, err)
		}
	}

	if _, err := cements.Execute(context.Background(), "c", Context{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(calls) != 1 || calls[0] != "new" {
		t.Fatalf("expected only the replacement definition to run, got %v", calls)
	}
}
