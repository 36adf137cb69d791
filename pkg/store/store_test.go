package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	resolution "github.com/goliatone/go-resolution"
	"github.com/goliatone/go-resolution/pkg/activity"
	"github.com/goliatone/go-resolution/pkg/store"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDispatchReducesAndNotifies(t *testing.T) {
	s := store.New()
	var seen []resolution.ActionType
	unsubscribe := s.Subscribe(func(prev, next *resolution.State, action resolution.Action) {
		if prev == next {
			t.Fatalf("listener called without a state change")
		}
		seen = append(seen, action.Type)
	})

	ctx := context.Background()
	if _, err := s.Dispatch(ctx, resolution.StartResolution("getPost", 1)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !resolution.IsResolving(s.State(), "getPost", 1) {
		t.Fatalf("expected getPost(1) to be resolving")
	}

	// no-op: nothing to invalidate
	if _, err := s.Dispatch(ctx, resolution.InvalidateResolution("getPost", 2)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	unsubscribe()
	unsubscribe()
	if _, err := s.Dispatch(ctx, resolution.FinishResolution("getPost", 1)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	want := []resolution.ActionType{resolution.ActionStartResolution}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("listener actions mismatch (-want +got):\n%s", diff)
	}
	if !resolution.HasFinishedResolution(s.State(), "getPost", 1) {
		t.Fatalf("expected getPost(1) to be finished")
	}
}

func TestDispatchRejectsInvalidActions(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	s := store.New(store.WithTracer(provider.Tracer("test")))
	before := s.State()

	_, err := s.Dispatch(context.Background(), resolution.Action{Type: "RESET"})
	if !errors.Is(err, resolution.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if s.State() != before {
		t.Fatalf("expected state to be untouched")
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Name() != "resolution.dispatch" || spans[0].Status().Code != codes.Error {
		t.Fatalf("unexpected span %s status %v", spans[0].Name(), spans[0].Status())
	}
}

func TestDispatchJSON(t *testing.T) {
	s := store.New()
	state, err := s.DispatchJSON(context.Background(), []byte(`{"type":"fail_resolution","selectorName":"getPost","args":[7],"error":"gone"}`))
	if err != nil {
		t.Fatalf("dispatch json: %v", err)
	}
	got, ok := resolution.GetResolutionError(state, "getPost", 7)
	if !ok || got != "gone" {
		t.Fatalf("expected stored error, got %v (%v)", got, ok)
	}

	if _, err := s.DispatchJSON(context.Background(), []byte(`{"type":"START_RESOLUTION"}`)); !errors.Is(err, resolution.ErrSelectorNameRequired) {
		t.Fatalf("expected ErrSelectorNameRequired, got %v", err)
	}
}

func TestResolveLifecycle(t *testing.T) {
	capture := &activity.CaptureHook{}
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := store.New(store.WithHooks(capture), store.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	calls := 0
	err := s.Resolve(ctx, "getPost", []any{1}, func(context.Context) error {
		calls++
		if !resolution.IsResolving(s.State(), "getPost", 1) {
			t.Fatalf("expected resolving while fn runs")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := s.Resolve(ctx, "getPost", []any{1}, func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected started pair to be skipped, fn ran %d times", calls)
	}

	boom := errors.New("boom")
	if err := s.Resolve(ctx, "getPost", []any{2}, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got, _ := resolution.GetResolutionError(s.State(), "getPost", 2); got != boom {
		t.Fatalf("expected boom stored, got %v", got)
	}

	want := []string{
		activity.VerbResolutionStarted,
		activity.VerbResolutionFinished,
		activity.VerbResolutionStarted,
		activity.VerbResolutionFailed,
	}
	if diff := cmp.Diff(want, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
	for _, event := range capture.Events() {
		if event.Channel != activity.DefaultChannel || !event.OccurredAt.Equal(fixed) {
			t.Fatalf("unexpected event defaults: %+v", event)
		}
	}
}

func TestHookFailureDoesNotUndoDispatch(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	s := store.New(store.WithHooks(capture))
	if _, err := s.Dispatch(context.Background(), resolution.StartResolution("getPost")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !resolution.HasStartedResolution(s.State(), "getPost") {
		t.Fatalf("expected dispatch to stick despite hook failure")
	}
}

func TestActivityDisabled(t *testing.T) {
	capture := &activity.CaptureHook{}
	s := store.New(store.WithHooks(capture), store.WithActivityConfig(activity.Config{Enabled: false}))
	if _, err := s.Dispatch(context.Background(), resolution.StartResolution("getPost")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events when activity is disabled")
	}
}

func TestDispatchCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	s := store.New(store.WithMeter(provider.Meter("test")))

	ctx := context.Background()
	for _, action := range []resolution.Action{
		resolution.StartResolution("getPost", 1),
		resolution.FinishResolution("getPost", 1),
		resolution.InvalidateResolutionForStore(),
		resolution.InvalidateResolutionForStore(),
	} {
		if _, err := s.Dispatch(ctx, action); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "resolution.store.dispatches" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, point := range sum.DataPoints {
				total += point.Value
			}
		}
	}
	if total != 4 {
		t.Fatalf("expected 4 dispatches counted, got %d", total)
	}
}

func TestWithInitialState(t *testing.T) {
	seed := resolution.Reduce(resolution.NewState(), resolution.FinishResolution("getUser"))
	s := store.New(store.WithInitialState(seed))
	if s.State() != seed {
		t.Fatalf("expected seeded state")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := resolution.DefaultConfig()
	cfg.Log.Output = "discard"
	capture := &activity.CaptureHook{}
	s, err := store.NewFromConfig(cfg, activity.Hooks{capture})
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}
	if _, err := s.Dispatch(context.Background(), resolution.StartResolution("getPost")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(capture.Events()) != 1 {
		t.Fatalf("expected one event, got %d", len(capture.Events()))
	}

	cfg.Log.Level = "loud"
	if _, err := store.NewFromConfig(cfg, nil); err == nil {
		t.Fatalf("expected invalid config to fail")
	}
}

func TestConcurrentDispatch(t *testing.T) {
	s := store.New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = s.Resolve(ctx, "getPost", []any{id}, nil)
		}(i)
	}
	wg.Wait()

	counts := resolution.CountSelectorsByStatus(s.State())
	if counts.Get(resolution.StatusFinished) != 50 {
		t.Fatalf("expected 50 finished records, got %v", counts)
	}
}
