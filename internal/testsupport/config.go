package testsupport

import (
	"path/filepath"
	"testing"

	"torrel/internal/config"
	"torrel/internal/rules"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.TMDB.APIKey = "test"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.RulesDir = filepath.Join(base, "rules")
	cfg.Download.DispatchDelay = 0
	cfg.Workflow.DefaultPollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAgent appends a download agent to the test config.
func WithAgent(agent config.Agent) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Agents = append(cfg.Agents, agent)
	}
}

// WithSource appends a source to the test config.
func WithSource(source config.Source) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sources = append(cfg.Sources, source)
	}
}

// AcceptAllRules returns a single-rule list that matches every entry.
func AcceptAllRules() []rules.Rule {
	return []rules.Rule{{}}
}
