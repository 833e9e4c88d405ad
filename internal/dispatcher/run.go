package dispatcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"csvwatch/internal/convert"
	"csvwatch/internal/logging"
	"csvwatch/internal/stability"
	"csvwatch/internal/watchfs"
)

// runLoop is the only goroutine that touches the stability gate.
func (d *Dispatcher) runLoop(ctx context.Context) {
	defer d.loopWG.Done()

	ticker := time.NewTicker(d.tickInterval())
	defer ticker.Stop()

	events := d.source.Events()
	sourceErrs := d.source.Errors()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			d.handleEvent(event, time.Now())
		case err, ok := <-sourceErrs:
			if !ok {
				sourceErrs = nil
				continue
			}
			d.logger.Warn("event source error",
				logging.Args(logging.Error(err))...)
		case done := <-d.completions:
			d.handleCompletion(done, time.Now())
		case now := <-ticker.C:
			d.tick(ctx, now)
		}
	}
}

// tickInterval is how often observing paths are re-stated. Half the quiet
// period keeps promotion latency low without hammering stat.
func (d *Dispatcher) tickInterval() time.Duration {
	interval := d.cfg.QuietPeriod() / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return interval
}

func (d *Dispatcher) handleEvent(event watchfs.Event, now time.Time) {
	if event.Kind == watchfs.KindDeleted {
		d.gate.Forget(event.Path)
		return
	}
	if !watchfs.IsCandidate(event.Path) {
		return
	}
	fp, ok := stability.Stat(event.Path)
	if !ok {
		d.gate.Forget(event.Path)
		return
	}
	d.gate.Observe(event.Path, fp, now)
}

// tick re-observes every path waiting to stabilize, then schedules a job
// for each path the gate promotes.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	for _, path := range d.gate.Observing() {
		fp, ok := stability.Stat(path)
		if !ok {
			d.gate.Forget(path)
			continue
		}
		d.gate.Observe(path, fp, now)
	}

	for _, path := range d.gate.Promote(now) {
		d.scheduleJob(ctx, path, now)
	}

	d.mu.Lock()
	d.tracked = d.gate.Len()
	d.mu.Unlock()
}

func (d *Dispatcher) scheduleJob(ctx context.Context, path string, now time.Time) {
	fp, ok := d.gate.Stamp(path)
	if !ok {
		return
	}

	seen, err := d.store.SeenFingerprint(ctx, path, fp)
	if err != nil {
		d.logger.Error("ledger fingerprint check failed",
			logging.Args(logging.Error(err), logging.String(logging.FieldSourcePath, path))...)
		seen = false
	}
	if seen {
		// This exact file version was already handled, typically a
		// process-existing entry whose creation event arrived late.
		if d.gate.Claim(path) {
			d.gate.Complete(path, fp, now)
		}
		return
	}

	skipHash, err := d.store.LastCompletedHash(ctx, path)
	if err != nil {
		d.logger.Error("ledger hash lookup failed",
			logging.Args(logging.Error(err), logging.String(logging.FieldSourcePath, path))...)
	}

	if !d.gate.Claim(path) {
		return
	}

	requestID := uuid.NewString()
	ledgerJob, err := d.store.Enqueue(ctx, requestID, path, fp)
	if err != nil {
		d.logger.Error("ledger enqueue failed",
			logging.Args(logging.Error(err), logging.String(logging.FieldSourcePath, path))...)
		d.gate.Complete(path, fp, now)
		return
	}

	item := workItem{
		ledgerID: ledgerJob.ID,
		job: convert.Job{
			ID:          requestID,
			SourcePath:  path,
			Fingerprint: fp,
			SkipHash:    skipHash,
		},
	}
	select {
	case d.jobs <- item:
	case <-ctx.Done():
		d.gate.Complete(path, fp, now)
	}
}

// handleCompletion feeds a finished job's outcome back into the gate. A
// fingerprint that moved while the job ran re-enters observation, which is
// how a coalesced re-trigger becomes a fresh conversion.
func (d *Dispatcher) handleCompletion(done completion, now time.Time) {
	fp, ok := stability.Stat(done.path)
	if !ok {
		d.gate.Forget(done.path)
		return
	}
	state := d.gate.Complete(done.path, fp, now)
	if done.err != nil && convert.IsRace(done.err) && state == stability.StateIdle {
		// The race re-check failed but the file now matches the claimed
		// version again; make sure it gets another look.
		d.gate.Forget(done.path)
		d.gate.Observe(done.path, fp, now)
	}
}

func (d *Dispatcher) runWorker(ctx context.Context) {
	defer d.workWG.Done()
	for item := range d.jobs {
		d.runJob(ctx, item)
	}
}

func (d *Dispatcher) runJob(ctx context.Context, item workItem) {
	// Ledger writes use their own context: the run context is canceled at
	// the start of drain, and a job finishing inside the shutdown grace must
	// still record its terminal state for the summary.
	ledgerCtx := context.Background()
	if err := d.store.MarkConverting(ledgerCtx, item.ledgerID); err != nil {
		d.logger.Error("ledger claim failed",
			logging.Args(logging.Error(err), logging.String(logging.FieldJobID, item.job.ID))...)
	}

	result, err := d.pipeline.Run(ctx, item.job)
	switch {
	case err == nil && result.Skipped:
		if markErr := d.store.MarkSkipped(ledgerCtx, item.ledgerID, result.ContentHash); markErr != nil {
			d.logger.Error("ledger skip update failed",
				logging.Args(logging.Error(markErr), logging.String(logging.FieldJobID, item.job.ID))...)
		}
	case err == nil:
		if markErr := d.store.MarkCompleted(ledgerCtx, item.ledgerID, result.OutputPath, result.ContentHash, result.Records); markErr != nil {
			d.logger.Error("ledger completion update failed",
				logging.Args(logging.Error(markErr), logging.String(logging.FieldJobID, item.job.ID))...)
		}
	default:
		kind := convert.KindOf(err)
		if markErr := d.store.MarkFailed(ledgerCtx, item.ledgerID, string(kind), err.Error()); markErr != nil {
			d.logger.Error("ledger failure update failed",
				logging.Args(logging.Error(markErr), logging.String(logging.FieldJobID, item.job.ID))...)
		}
		if kind == convert.KindRace {
			d.logger.Debug("source changed under conversion, will re-observe",
				logging.Args(logging.String(logging.FieldSourcePath, item.job.SourcePath))...)
		} else {
			d.logger.Error("conversion failed",
				logging.Args(
					logging.Error(err),
					logging.String(logging.FieldJobID, item.job.ID),
					logging.String(logging.FieldSourcePath, item.job.SourcePath),
				)...)
		}
	}

	select {
	case d.completions <- completion{path: item.job.SourcePath, err: err}:
	case <-ctx.Done():
	}
}

// sweepExisting enumerates qualifying files already present under the watch
// roots and backdates their observations so the first tick promotes them
// without waiting out the quiet period again.
func (d *Dispatcher) sweepExisting(now time.Time) {
	backdated := now.Add(-d.cfg.QuietPeriod())
	for _, root := range d.cfg.Watch.Dirs {
		d.sweepRoot(root, backdated)
	}
}

func (d *Dispatcher) sweepRoot(root string, observedAt time.Time) {
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != root && !d.cfg.Watch.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !watchfs.IsCandidate(path) {
			return nil
		}
		if fp, ok := stability.Stat(path); ok {
			d.gate.Observe(path, fp, observedAt)
		}
		return nil
	})
	if walkErr != nil {
		d.logger.Warn("existing-file sweep failed",
			logging.Args(logging.Error(walkErr), logging.String(logging.FieldWatchDir, root))...)
	}
}
