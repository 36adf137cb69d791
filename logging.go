package resolution

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogConfig selects the level and format of a logger built by NewLogger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	// Output is "stderr", "stdout" or "discard".
	Output string `toml:"output" env:"OUTPUT"`
}

// NewLogger builds a logrus logger from cfg.
func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("resolution: log level: %w", err)
	}
	logger.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("resolution: unsupported log format %q", cfg.Format)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stderr":
		logger.SetOutput(os.Stderr)
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "discard":
		logger.SetOutput(io.Discard)
	default:
		return nil, fmt.Errorf("resolution: unsupported log output %q", cfg.Output)
	}
	return logger, nil
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
