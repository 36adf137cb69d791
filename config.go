package resolution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-resolution/pkg/activity"
	"github.com/sirupsen/logrus"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "RESOLUTION_"

// Config gathers the tunables of the ledger's supporting services. Values
// come from DefaultConfig, then an optional TOML file, then RESOLUTION_*
// environment variables.
type Config struct {
	Log          LogConfig         `toml:"log" envPrefix:"LOG_"`
	Activity     activity.Config   `toml:"activity" envPrefix:"ACTIVITY_"`
	Deprecations DeprecationConfig `toml:"deprecations" envPrefix:"DEPRECATIONS_"`
	Inspector    InspectorConfig   `toml:"inspector" envPrefix:"INSPECTOR_"`
}

// DeprecationConfig controls deprecation notices.
type DeprecationConfig struct {
	// Repeat reports every notice rather than once per message.
	Repeat bool `toml:"repeat" env:"REPEAT"`
	// Silence drops notices entirely.
	Silence bool `toml:"silence" env:"SILENCE"`
}

// InspectorConfig selects the predicate engine used by NewInspectorFromConfig.
type InspectorConfig struct {
	// Engine is one of "expr", "cel" or "js".
	Engine        string `toml:"engine" env:"ENGINE"`
	CachePrograms bool   `toml:"cache_programs" env:"CACHE_PROGRAMS"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Activity: activity.Config{
			Enabled: true,
			Channel: activity.DefaultChannel,
		},
		Inspector: InspectorConfig{
			Engine:        EngineExpr,
			CachePrograms: true,
		},
	}
}

// LoadConfig builds a Config from defaults, the TOML file at path (skipped
// when path is empty) and the process environment.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, nil)
}

func loadConfig(path string, environ map[string]string) (Config, error) {
	cfg := DefaultConfig()

	if path = strings.TrimSpace(path); path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("resolution: load config %q: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			return Config{}, fmt.Errorf("resolution: load config %q: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("resolution: parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("resolution: log level: %w", err))
	}
	switch strings.ToLower(c.Inspector.Engine) {
	case EngineExpr, EngineCEL, EngineJS:
	default:
		errs = append(errs, fmt.Errorf("resolution: unsupported inspector engine %q", c.Inspector.Engine))
	}
	return errors.Join(errs...)
}

// DeprecationNotifier builds a notifier honouring the deprecation settings. It
// returns nil when notices are silenced, which SetDeprecationNotifier accepts.
func (c Config) DeprecationNotifier(logger logrus.FieldLogger, hooks activity.Hooks) *DeprecationNotifier {
	if c.Deprecations.Silence {
		return nil
	}
	return NewDeprecationNotifier(
		WithDeprecationLogger(logger),
		WithDeprecationHooks(hooks),
		WithDeprecationChannel(c.Activity.Channel),
		WithDeprecationRepeat(c.Deprecations.Repeat),
	)
}

// InstallDeprecations makes the notifier built by DeprecationNotifier the
// package default used by Deprecated. The returned function restores the
// previous notifier.
func (c Config) InstallDeprecations(logger logrus.FieldLogger, hooks activity.Hooks) (restore func()) {
	return SetDeprecationNotifier(c.DeprecationNotifier(logger, hooks))
}
