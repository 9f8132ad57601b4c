package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"torrel/internal/action"
	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/services/qbit"
	"torrel/internal/services/tmdb"
)

// Notifier receives pipeline events. The notifications service satisfies
// it; tests substitute their own. Delivery failures are logged, never
// propagated.
type Notifier interface {
	NotifyPassCompleted(ctx context.Context, summary *history.PassSummary) error
	NotifyPassFailed(ctx context.Context, source string, err error) error
	NotifyDownloadAdded(ctx context.Context, source, title string) error
}

// Manager owns one runner per configured source and schedules their
// passes. Each source polls on its own interval; a failed pass is retried
// sooner, on the error-retry interval.
type Manager struct {
	cfg      *config.Config
	store    *history.Store
	runners  []*Runner
	notifier Notifier
	log      *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	retries []*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewManager wires clients and runners from the configuration. Missing
// rule files referenced by any source fail here, before anything is
// scheduled.
func NewManager(cfg *config.Config, store *history.Store, notifier Notifier, logger *slog.Logger) (*Manager, error) {
	var metadata tmdb.Searcher
	if cfg.TMDB.APIKey != "" {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
		if err != nil {
			return nil, err
		}
		metadata = client
	}

	agents := make(map[string]action.Agent, len(cfg.Agents))
	for _, agentCfg := range cfg.Agents {
		client, err := qbit.New(agentCfg, cfg.AgentTimeout())
		if err != nil {
			return nil, err
		}
		agents[agentCfg.Name] = client
	}

	m := &Manager{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		log:      logging.WithComponent(logger, "manager"),
	}
	for _, source := range cfg.Sources {
		runner, err := NewRunner(cfg, source, RunnerOptions{
			Store:    store,
			Metadata: metadata,
			Agents:   agents,
			Notifier: notifier,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		m.runners = append(m.runners, runner)
	}
	return m, nil
}

// Start schedules every source and runs an immediate first pass for each.
// It returns once scheduling is in place; passes run on the cron
// goroutine and are bounded by ctx.
func (m *Manager) Start(ctx context.Context) error {
	if len(m.runners) == 0 {
		return errors.New("no sources configured")
	}
	m.cron = cron.New()
	for _, runner := range m.runners {
		spec := fmt.Sprintf("@every %ds", runner.Source().PollInterval)
		if _, err := m.cron.AddFunc(spec, func() { m.runPass(ctx, runner) }); err != nil {
			return fmt.Errorf("schedule source %s: %w", runner.Source().Name, err)
		}
		m.log.Info("source scheduled",
			logging.String(logging.FieldSource, runner.Source().Name),
			logging.Int("interval_s", runner.Source().PollInterval))

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runPass(ctx, runner)
		}()
	}
	m.cron.Start()
	return nil
}

// Stop halts scheduling and waits for in-flight passes to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	for _, timer := range m.retries {
		// A timer that already fired settles its own WaitGroup slot.
		if timer.Stop() {
			m.wg.Done()
		}
	}
	m.retries = nil
	m.mu.Unlock()

	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.wg.Wait()
}

// RunOnce executes a single pass for the named source, or for every
// source when name is empty.
func (m *Manager) RunOnce(ctx context.Context, name string) (*history.PassSummary, error) {
	total := &history.PassSummary{Source: name}
	matched := false
	for _, runner := range m.runners {
		if name != "" && runner.Source().Name != name {
			continue
		}
		matched = true
		summary, err := runner.Pass(ctx)
		if err != nil {
			return summary, err
		}
		total.Fetched += summary.Fetched
		total.Accepted += summary.Accepted
		total.Rejected += summary.Rejected
		total.Skipped += summary.Skipped
		total.Errors += summary.Errors
	}
	if !matched {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return total, nil
}

func (m *Manager) runPass(ctx context.Context, runner *Runner) {
	if ctx.Err() != nil {
		return
	}
	summary, err := runner.Pass(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.log.Warn("pass failed",
			logging.String(logging.FieldSource, runner.Source().Name),
			logging.Error(err))
		if m.notifier != nil {
			if nerr := m.notifier.NotifyPassFailed(ctx, runner.Source().Name, err); nerr != nil {
				m.log.Debug("notify failed", logging.Error(nerr))
			}
		}
		m.scheduleRetry(ctx, runner)
		return
	}
	if m.notifier != nil {
		if nerr := m.notifier.NotifyPassCompleted(ctx, summary); nerr != nil {
			m.log.Debug("notify failed", logging.Error(nerr))
		}
	}
}

// scheduleRetry queues one early re-run after the error-retry interval.
// The regular cron schedule keeps ticking regardless; the runner's mutex
// keeps the two from overlapping.
func (m *Manager) scheduleRetry(ctx context.Context, runner *Runner) {
	interval := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.wg.Add(1)
	m.retries = append(m.retries, time.AfterFunc(interval, func() {
		defer m.wg.Done()
		m.runPass(ctx, runner)
	}))
}
