package resolution

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-resolution/pkg/activity"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
)

// DeprecationOptions describes when a feature was deprecated and what replaces
// it. Every field is optional.
type DeprecationOptions struct {
	Since       string
	Version     string
	Alternative string
	Plugin      string
	Link        string
	Hint        string
}

// DeprecationMessage formats the advisory text for feature.
func DeprecationMessage(feature string, opts DeprecationOptions) string {
	var b strings.Builder
	b.WriteString(feature)
	b.WriteString(" is deprecated")
	if opts.Since != "" {
		b.WriteString(" since version ")
		b.WriteString(opts.Since)
	}
	if opts.Version != "" {
		b.WriteString(" and will be removed")
		if opts.Plugin != "" {
			b.WriteString(" from ")
			b.WriteString(opts.Plugin)
		}
		b.WriteString(" in version ")
		b.WriteString(opts.Version)
	}
	b.WriteString(".")
	if opts.Alternative != "" {
		b.WriteString(" Please use ")
		b.WriteString(opts.Alternative)
		b.WriteString(" instead.")
	}
	if opts.Link != "" {
		b.WriteString(" See: ")
		b.WriteString(opts.Link)
	}
	if opts.Hint != "" {
		b.WriteString(" Note: ")
		b.WriteString(opts.Hint)
	}
	return b.String()
}

// DeprecationNotifier logs deprecation notices and fans them out to activity
// hooks. Unless configured to repeat, each distinct message is reported once.
type DeprecationNotifier struct {
	logger  logrus.FieldLogger
	emitter *activity.Emitter
	repeat  bool
	logged  *xsync.MapOf[string, struct{}]
}

// DeprecationOption configures a DeprecationNotifier.
type DeprecationOption func(*deprecationConfig)

type deprecationConfig struct {
	logger  logrus.FieldLogger
	hooks   activity.Hooks
	channel string
	repeat  bool
}

// WithDeprecationLogger sets the logger notices are written to.
func WithDeprecationLogger(logger logrus.FieldLogger) DeprecationOption {
	return func(cfg *deprecationConfig) {
		cfg.logger = logger
	}
}

// WithDeprecationHooks forwards notices to hooks as deprecation.notice events.
func WithDeprecationHooks(hooks activity.Hooks) DeprecationOption {
	return func(cfg *deprecationConfig) {
		cfg.hooks = activity.CloneHooks(hooks)
	}
}

// WithDeprecationChannel sets the activity channel for notice events.
func WithDeprecationChannel(channel string) DeprecationOption {
	return func(cfg *deprecationConfig) {
		cfg.channel = channel
	}
}

// WithDeprecationRepeat reports every notice instead of once per message.
func WithDeprecationRepeat(repeat bool) DeprecationOption {
	return func(cfg *deprecationConfig) {
		cfg.repeat = repeat
	}
}

// NewDeprecationNotifier builds a notifier. Without a logger it writes to the
// logrus standard logger.
func NewDeprecationNotifier(opts ...DeprecationOption) *DeprecationNotifier {
	cfg := deprecationConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = logrus.StandardLogger()
	}
	return &DeprecationNotifier{
		logger:  cfg.logger,
		emitter: activity.NewEmitter(cfg.hooks, activity.Config{Enabled: true, Channel: cfg.channel}),
		repeat:  cfg.repeat,
		logged:  xsync.NewMapOf[string, struct{}](),
	}
}

// Notify reports that feature is deprecated. It reports whether the notice was
// emitted, which is false when the same message was already reported.
func (n *DeprecationNotifier) Notify(ctx context.Context, feature string, opts DeprecationOptions) bool {
	if n == nil {
		return false
	}
	message := DeprecationMessage(feature, opts)
	if !n.repeat {
		if _, loaded := n.logged.LoadOrStore(message, struct{}{}); loaded {
			return false
		}
	}

	n.logger.WithField("feature", feature).Warn(message)

	event := activity.BuildDeprecationEvent(activity.DeprecationEventInput{
		Feature:     feature,
		Message:     message,
		Since:       opts.Since,
		Version:     opts.Version,
		Alternative: opts.Alternative,
	})
	if err := n.emitter.Emit(ctx, event); err != nil {
		n.logger.WithError(err).Debug("deprecation hooks failed")
	}
	return true
}

// Reset forgets which messages were already reported.
func (n *DeprecationNotifier) Reset() {
	if n == nil {
		return
	}
	n.logged.Clear()
}

var defaultDeprecations atomic.Pointer[DeprecationNotifier]

func init() {
	defaultDeprecations.Store(NewDeprecationNotifier())
}

// Deprecated reports a deprecation through the package notifier.
func Deprecated(feature string, opts DeprecationOptions) {
	defaultDeprecations.Load().Notify(context.Background(), feature, opts)
}

// SetDeprecationNotifier replaces the package notifier used by Deprecated and
// returns a function restoring the previous one. A nil notifier silences
// notices.
func SetDeprecationNotifier(n *DeprecationNotifier) (restore func()) {
	previous := defaultDeprecations.Swap(n)
	return func() {
		defaultDeprecations.Store(previous)
	}
}
