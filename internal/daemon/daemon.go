// Package daemon coordinates the background pollers and enforces
// single-instance execution via a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/notifications"
	"torrel/internal/orchestrator"
)

type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *history.Store
	manager *orchestrator.Manager

	lockPath string
	lock     *flock.Flock
	runID    string

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. Each daemon run
// carries a fresh run ID on every log record.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	manager, err := orchestrator.NewManager(cfg, store, notifications.NewService(cfg), logger)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "torreld.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		runID:    runID,
	}, nil
}

// RunID returns this daemon run's identifier.
func (d *Daemon) RunID() string { return d.runID }

// Start acquires the instance lock and begins polling every source.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another torrel daemon instance is already running")
	}

	ctx, d.cancel = context.WithCancel(ctx)
	if err := d.manager.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.cancel = nil
		return fmt.Errorf("start sources: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("torrel daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("sources", len(d.cfg.Sources)))
	return nil
}

// Stop halts polling and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("torrel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
