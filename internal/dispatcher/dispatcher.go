package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"csvwatch/internal/config"
	"csvwatch/internal/convert"
	"csvwatch/internal/logging"
	"csvwatch/internal/queue"
	"csvwatch/internal/stability"
	"csvwatch/internal/watchfs"
)

// Phase is the dispatcher lifecycle position.
type Phase string

const (
	PhaseStarting Phase = "starting"
	PhaseRunning  Phase = "running"
	PhaseDraining Phase = "draining"
	PhaseStopped  Phase = "stopped"
)

// Status is a point-in-time snapshot of the dispatcher for status output.
type Status struct {
	Phase      Phase
	SourceName string
	Tracked    int
	Jobs       queue.Summary
}

type workItem struct {
	ledgerID int64
	job      convert.Job
}

type completion struct {
	path string
	err  error
}

// Dispatcher owns the watch loop and the conversion worker pool.
type Dispatcher struct {
	cfg      *config.Config
	store    *queue.Store
	pipeline *convert.Pipeline
	logger   *slog.Logger
	gate     *stability.Gate

	source      watchfs.Source
	jobs        chan workItem
	completions chan completion

	mu      sync.RWMutex
	phase   Phase
	tracked int
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	workWG  sync.WaitGroup
}

// New constructs a dispatcher. The store and pipeline are shared with the
// CLI layer so one-shot conversions and the daemon report through the same
// ledger.
func New(cfg *config.Config, store *queue.Store, pipeline *convert.Pipeline, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:         cfg,
		store:       store,
		pipeline:    pipeline,
		logger:      logging.NewComponentLogger(logger, "dispatcher"),
		gate:        stability.NewGate(cfg.QuietPeriod()),
		jobs:        make(chan workItem, 64),
		completions: make(chan completion, 64),
		phase:       PhaseStarting,
	}
}

// Start performs the process-existing sweep, opens the event source, and
// launches the watch loop and worker pool. It returns once the watcher is
// live; a startup failure (no usable event source) is fatal.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.phase != PhaseStarting {
		d.mu.Unlock()
		return errors.New("dispatcher already started")
	}
	d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	if d.cfg.Watch.ProcessExisting {
		d.sweepExisting(time.Now())
	}

	source, err := watchfs.Open(runCtx, watchfs.Options{
		Roots:        d.cfg.Watch.Dirs,
		Recursive:    d.cfg.Watch.Recursive,
		PollInterval: d.cfg.PollInterval(),
	}, d.logger)
	if err != nil {
		cancel()
		return err
	}

	d.mu.Lock()
	d.source = source
	d.cancel = cancel
	d.phase = PhaseRunning
	d.mu.Unlock()

	workers := d.cfg.Workers.Count
	if workers < 1 {
		workers = 1
	}
	d.workWG.Add(workers)
	for i := 0; i < workers; i++ {
		go d.runWorker(runCtx)
	}

	d.loopWG.Add(1)
	go d.runLoop(runCtx)

	d.logger.Info("watching",
		logging.Args(
			logging.String("source", source.Name()),
			logging.Any("dirs", d.cfg.Watch.Dirs),
			logging.Bool("recursive", d.cfg.Watch.Recursive),
			logging.Duration("quiet_period", d.cfg.QuietPeriod()),
			logging.Int("workers", workers),
		)...)
	return nil
}

// Stop drains the dispatcher: the event source stops, no new jobs are
// accepted, and in-flight conversions get the shutdown grace period to
// finish. Safe to call once after a successful Start.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.phase != PhaseRunning {
		d.mu.Unlock()
		return
	}
	d.phase = PhaseDraining
	cancel := d.cancel
	source := d.source
	d.cancel = nil
	d.mu.Unlock()

	source.Stop()
	cancel()
	d.loopWG.Wait()
	close(d.jobs)

	done := make(chan struct{})
	go func() {
		d.workWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d.cfg.ShutdownGrace()):
		d.logger.Warn("shutdown grace elapsed with conversions still in flight")
	}

	d.mu.Lock()
	d.phase = PhaseStopped
	d.mu.Unlock()
	d.logger.Info("stopped")
}

// Snapshot reports the current dispatcher status.
func (d *Dispatcher) Snapshot(ctx context.Context) Status {
	d.mu.RLock()
	status := Status{Phase: d.phase, Tracked: d.tracked}
	if d.source != nil {
		status.SourceName = d.source.Name()
	}
	d.mu.RUnlock()

	if summary, err := d.store.Summarize(ctx); err == nil {
		status.Jobs = summary
	}
	return status
}
