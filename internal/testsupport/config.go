// Package testsupport provides shared fixtures for csvwatch tests: configs
// seeded with per-test temp directories, ledger stores with registered
// cleanup, and wired dispatchers.
package testsupport

import (
	"log/slog"
	"path/filepath"
	"testing"

	"csvwatch/internal/config"
	"csvwatch/internal/logging"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and timing constants short enough for tests to wait out.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Watch.Dirs = []string{mkdir(t, filepath.Join(base, "watch"))}
	cfg.Output.Dir = filepath.Join(base, "out")
	cfg.Logging.Dir = filepath.Join(base, "logs")
	cfg.Timing.QuietPeriodMS = 100
	cfg.Timing.PollIntervalMS = 50
	cfg.Timing.ShutdownGraceMS = 2000
	cfg.Workers.Count = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLinesFormat switches the test config to line-delimited output.
func WithLinesFormat() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Output.Format = config.FormatLines
	}
}

// WithOverwrite enables deterministic output naming on the test config.
func WithOverwrite() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Output.Overwrite = true
	}
}

// Logger returns the logger tests should pass to components.
func Logger() *slog.Logger {
	return logging.NewNop()
}
