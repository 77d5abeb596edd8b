package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/michaelgiba/covered/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Paths.BaseURL = "http://base.test"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMode sets the worker acquisition mode on the test config.
func WithMode(mode config.WorkMode) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Mode = string(mode)
	}
}

// WithBaseURL overrides the public base URL on the test config.
func WithBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.BaseURL = url
	}
}
