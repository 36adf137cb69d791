package store

import (
	"time"

	resolution "github.com/goliatone/go-resolution"
	"github.com/goliatone/go-resolution/pkg/activity"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for dispatch traces.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks appends activity hooks notified on every accepted dispatch.
func WithHooks(hooks ...activity.ActivityHook) Option {
	return func(s *Store) {
		s.hooks = s.hooks.With(hooks...)
	}
}

// WithActivityConfig overrides the activity emission settings.
func WithActivityConfig(cfg activity.Config) Option {
	return func(s *Store) {
		s.activity = cfg
	}
}

// WithActor stamps emitted events with the given actor and tenant.
func WithActor(actorID, tenantID string) Option {
	return func(s *Store) {
		s.actorID = actorID
		s.tenantID = tenantID
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMeter replaces the global meter.
func WithMeter(meter metric.Meter) Option {
	return func(s *Store) {
		if meter != nil {
			s.meter = meter
		}
	}
}

// WithInitialState seeds the store. A nil state is ignored.
func WithInitialState(state *resolution.State) Option {
	return func(s *Store) {
		if state != nil {
			s.state = state
		}
	}
}

// WithClock sets the timestamp source for emitted events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
