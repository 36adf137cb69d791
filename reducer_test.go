package resolution

import (
	"errors"
	"testing"
)

func reduceAll(state *State, actions ...Action) *State {
	for _, action := range actions {
		state = Reduce(state, action)
	}
	return state
}

func TestReduceStartFinishFail(t *testing.T) {
	state := Reduce(NewState(), StartResolution("getPost", 1))
	if !IsResolving(state, "getPost", 1) || HasFinishedResolution(state, "getPost", 1) {
		t.Fatalf("expected resolving after start")
	}

	finished := Reduce(state, FinishResolution("getPost", 1))
	if IsResolving(finished, "getPost", 1) || !HasFinishedResolution(finished, "getPost", 1) || HasResolutionFailed(finished, "getPost", 1) {
		t.Fatalf("expected finished after finish")
	}
	if !IsResolving(state, "getPost", 1) {
		t.Fatalf("expected previous state untouched")
	}

	failure := errors.New("not found")
	failed := Reduce(state, FailResolution("getPost", []any{1}, failure))
	if !HasResolutionFailed(failed, "getPost", 1) || !HasFinishedResolution(failed, "getPost", 1) || IsResolving(failed, "getPost", 1) {
		t.Fatalf("expected failed after fail")
	}
	got, ok := GetResolutionError(failed, "getPost", 1)
	if !ok || got != failure {
		t.Fatalf("expected exact error value, got %v ok=%v", got, ok)
	}
}

func TestReduceInvalidateResolution(t *testing.T) {
	state := reduceAll(NewState(),
		StartResolution("getPost", 1),
		StartResolution("getPost", 2),
		StartResolution("getUser", 1),
	)

	next := Reduce(state, InvalidateResolution("getPost", 1))
	if HasStartedResolution(next, "getPost", 1) {
		t.Fatalf("expected record removed")
	}
	if !HasStartedResolution(next, "getPost", 2) || !HasStartedResolution(next, "getUser", 1) {
		t.Fatalf("expected other records untouched")
	}

	if Reduce(next, InvalidateResolution("getPost", 99)) != next {
		t.Fatalf("expected missing record invalidation to keep state pointer")
	}
	if Reduce(next, InvalidateResolution("missing", 1)) != next {
		t.Fatalf("expected missing selector invalidation to keep state pointer")
	}
}

func TestReduceInvalidateSelector(t *testing.T) {
	state := reduceAll(NewState(),
		StartResolution("getPost", 1),
		FinishResolution("getPost", 2),
		StartResolution("getUser", 1),
	)

	next := Reduce(state, InvalidateResolutionForStoreSelector("getPost"))
	if _, ok := next.Table("getPost"); ok {
		t.Fatalf("expected getPost table removed")
	}
	if !IsResolving(next, "getUser", 1) {
		t.Fatalf("expected getUser untouched")
	}
	if Reduce(next, InvalidateResolutionForStoreSelector("getPost")) != next {
		t.Fatalf("expected no-op invalidation to keep state pointer")
	}
}

func TestReduceInvalidateStore(t *testing.T) {
	state := reduceAll(NewState(), StartResolution("getPost", 1), StartResolution("getUser"))
	next := Reduce(state, InvalidateResolutionForStore())
	if !next.Empty() || next.Len() != 0 {
		t.Fatalf("expected empty state, got %d records", next.Len())
	}
	if Reduce(next, InvalidateResolutionForStore()) != next {
		t.Fatalf("expected invalidating an empty state to keep pointer")
	}
}

func TestReduceBatchMatchesSingular(t *testing.T) {
	a1 := []any{map[string]any{"id": 1}}
	a2 := []any{map[string]any{"id": 2}}

	batched := Reduce(NewState(), StartResolutions("getPost", [][]any{a1, a2}))
	singular := reduceAll(NewState(), StartResolution("getPost", a1...), StartResolution("getPost", a2...))

	for _, args := range [][]any{a1, a2} {
		b, _ := GetResolutionState(batched, "getPost", args...)
		s, _ := GetResolutionState(singular, "getPost", args...)
		if b != s {
			t.Fatalf("expected batch and singular to agree for %v: %+v vs %+v", args, b, s)
		}
	}
	if batched.Len() != singular.Len() {
		t.Fatalf("expected equal sizes, got %d and %d", batched.Len(), singular.Len())
	}

	finished := Reduce(batched, FinishResolutions("getPost", [][]any{a1, a2}))
	if CountSelectorsByStatus(finished).Get(StatusFinished) != 2 {
		t.Fatalf("expected both finished")
	}
}

func TestReduceFailResolutionsZipsErrors(t *testing.T) {
	state := Reduce(NewState(), FailResolutions("getPost", [][]any{{1}, {2}}, []any{"first"}))

	err, ok := GetResolutionError(state, "getPost", 1)
	if !ok || err != "first" {
		t.Fatalf("expected first error, got %v ok=%v", err, ok)
	}
	err, ok = GetResolutionError(state, "getPost", 2)
	if !ok || err != nil {
		t.Fatalf("expected failed record with nil error, got %v ok=%v", err, ok)
	}
}

func TestReduceUnknownActionKeepsState(t *testing.T) {
	state := Reduce(NewState(), StartResolution("getPost"))
	if Reduce(state, Action{Type: "SOMETHING_ELSE"}) != state {
		t.Fatalf("expected unknown action to keep state pointer")
	}
	if Reduce(nil, Action{Type: "SOMETHING_ELSE"}) == nil {
		t.Fatalf("expected nil state to be replaced with an empty one")
	}
}

func TestReduceStructurallyEqualArgs(t *testing.T) {
	state := Reduce(NewState(), StartResolution("getPost", map[string]any{"id": 1}))
	if !HasStartedResolution(state, "getPost", map[string]any{"id": 1}) {
		t.Fatalf("expected lookup with a distinct but equal map to succeed")
	}
}
