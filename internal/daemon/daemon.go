package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"csvwatch/internal/config"
	"csvwatch/internal/dispatcher"
	"csvwatch/internal/logging"
	"csvwatch/internal/preflight"
	"csvwatch/internal/queue"
)

// Daemon owns the watch loop and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	dispatcher *dispatcher.Dispatcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Dispatcher   dispatcher.Status
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, disp *dispatcher.Dispatcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || disp == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, dispatcher, and logger")
	}

	lockPath := filepath.Join(cfg.Logging.Dir, "csvwatch.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		dispatcher: disp,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start runs preflight, acquires the daemon lock, and launches the
// dispatcher. Any failure here is a startup error for the caller to treat
// as fatal.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := preflight.Err(preflight.RunAll(d.cfg)); err != nil {
		return err
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another csvwatch instance is already watching")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.dispatcher.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start dispatcher: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("daemon started", logging.Args(logging.String("lock", d.lockPath))...)
	return nil
}

// Stop drains the dispatcher and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.dispatcher.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Args(logging.Error(err))...)
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Jobs returns the recorded conversion jobs for status output.
func (d *Daemon) Jobs(ctx context.Context) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("ledger unavailable")
	}
	return d.store.List(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Dispatcher:   d.dispatcher.Snapshot(ctx),
		LockFilePath: d.lockPath,
	}
}
