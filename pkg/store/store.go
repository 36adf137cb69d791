package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	resolution "github.com/goliatone/go-resolution"
	"github.com/goliatone/go-resolution/pkg/activity"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-resolution/pkg/store"

// Listener is called after a dispatch that changed the state. prev and next
// are never the same pointer.
type Listener func(prev, next *resolution.State, action resolution.Action)

// Store owns a resolution ledger. It is safe for concurrent use. Listeners
// run outside the lock, so concurrent dispatches may be observed out of
// order.
type Store struct {
	mu    sync.RWMutex
	state *resolution.State

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64

	logger     logrus.FieldLogger
	emitter    *activity.Emitter
	hooks      activity.Hooks
	activity   activity.Config
	tracer     trace.Tracer
	dispatches metric.Int64Counter
	meter      metric.Meter
	now        func() time.Time
	actorID    string
	tenantID   string
}

// New builds a Store starting from an empty state.
func New(opts ...Option) *Store {
	s := &Store{
		state:     resolution.NewState(),
		listeners: map[uint64]Listener{},
		logger:    resolution.DiscardLogger(),
		activity:  activity.Config{Enabled: true, Channel: activity.DefaultChannel},
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	if s.meter == nil {
		s.meter = otel.Meter(instrumentationName)
	}
	counter, err := s.meter.Int64Counter("resolution.store.dispatches",
		metric.WithDescription("Actions dispatched to the resolution store"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		s.logger.WithError(err).Warn("resolution: dispatch counter unavailable")
	}
	s.dispatches = counter
	s.emitter = activity.NewEmitter(s.hooks, s.activity)
	return s
}

// NewFromConfig builds a Store whose logger and activity settings come from
// cfg. Extra options are applied afterwards and may override them.
func NewFromConfig(cfg resolution.Config, hooks activity.Hooks, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := resolution.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithLogger(logger),
		WithHooks(hooks...),
		WithActivityConfig(cfg.Activity),
	}
	return New(append(base, opts...)...), nil
}

// State returns the current ledger. The returned state is immutable.
func (s *Store) State() *resolution.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch validates action and reduces it into the ledger, returning the
// resulting state. Invalid actions leave the ledger untouched. Activity hook
// failures are logged and never undo a dispatch.
func (s *Store) Dispatch(ctx context.Context, action resolution.Action) (*resolution.State, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.dispatch", trace.WithAttributes(
		attribute.String("resolution.action", string(action.Type)),
		attribute.String("resolution.selector", action.SelectorName),
	))
	defer span.End()

	if err := action.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithError(err).WithField("action", action.Type).Debug("resolution: rejected action")
		return s.State(), fmt.Errorf("resolution: dispatch: %w", err)
	}

	s.mu.Lock()
	prev := s.state
	next := resolution.Reduce(prev, action)
	s.state = next
	s.mu.Unlock()

	changed := next != prev
	span.SetAttributes(attribute.Bool("resolution.changed", changed))
	if s.dispatches != nil {
		s.dispatches.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resolution.action", string(action.Type)),
			attribute.Bool("resolution.changed", changed),
		))
	}
	s.logger.WithFields(logrus.Fields{
		"action":   action.Type,
		"selector": action.SelectorName,
		"changed":  changed,
		"records":  next.Len(),
	}).Debug("resolution: dispatched")

	if changed {
		s.notify(prev, next, action)
	}
	s.emit(ctx, span, action)
	return next, nil
}

// DispatchJSON decodes payload with resolution.DecodeAction and dispatches it.
func (s *Store) DispatchJSON(ctx context.Context, payload []byte) (*resolution.State, error) {
	action, err := resolution.DecodeAction(payload)
	if err != nil {
		return s.State(), fmt.Errorf("resolution: dispatch json: %w", err)
	}
	return s.Dispatch(ctx, action)
}

// Subscribe registers listener and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (s *Store) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// Resolve records the lifecycle of fn as the resolution of selectorName for
// args: it dispatches START_RESOLUTION, runs fn, then FINISH_RESOLUTION or
// FAIL_RESOLUTION with fn's error, which is returned. When the pair has
// already started, fn is skipped and nil is returned; invalidate the pair to
// resolve it again.
func (s *Store) Resolve(ctx context.Context, selectorName string, args []any, fn func(context.Context) error) error {
	if resolution.HasStartedResolution(s.State(), selectorName, args...) {
		return nil
	}
	if _, err := s.Dispatch(ctx, resolution.StartResolution(selectorName, args...)); err != nil {
		return err
	}

	var runErr error
	if fn != nil {
		runErr = fn(ctx)
	}
	if runErr != nil {
		if _, err := s.Dispatch(ctx, resolution.FailResolution(selectorName, args, runErr)); err != nil {
			return err
		}
		return runErr
	}
	_, err := s.Dispatch(ctx, resolution.FinishResolution(selectorName, args...))
	return err
}

func (s *Store) notify(prev, next *resolution.State, action resolution.Action) {
	s.listenersMu.RLock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(prev, next, action)
	}
}

func (s *Store) emit(ctx context.Context, span trace.Span, action resolution.Action) {
	if !s.emitter.Enabled() {
		return
	}
	event := activity.BuildResolutionEvent(activity.ResolutionEventInput{
		ActorID:      s.actorID,
		TenantID:     s.tenantID,
		Action:       string(action.Type),
		SelectorName: action.SelectorName,
		Args:         action.Args,
		ArgsList:     action.ArgsList,
		Error:        action.Error,
		Errors:       action.Errors,
		OccurredAt:   s.now(),
	})
	if err := s.emitter.Emit(ctx, event); err != nil {
		span.RecordError(err)
		s.logger.WithError(err).WithField("verb", event.Verb).Warn("resolution: activity hook failed")
	}
}
