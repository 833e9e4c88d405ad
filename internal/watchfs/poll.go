package watchfs

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"csvwatch/internal/logging"
)

type fileStamp struct {
	size  int64
	mtime time.Time
}

// PollSource emits events by scanning the watch roots on a fixed interval
// and diffing {size, mtime} against the previous scan's snapshot. It is the
// fallback when OS notifications are unavailable.
type PollSource struct {
	roots     []string
	recursive bool
	interval  time.Duration
	logger    *slog.Logger

	events chan Event
	errs   chan error
	done   chan struct{}

	// snapshot is owned by the scan loop; replaced wholesale after each scan.
	snapshot map[string]fileStamp

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewPollSource creates a polling source for the given roots.
func NewPollSource(roots []string, recursive bool, interval time.Duration, logger *slog.Logger) *PollSource {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PollSource{
		roots:     append([]string{}, roots...),
		recursive: recursive,
		interval:  interval,
		logger:    logging.NewComponentLogger(logger, "poll-source"),
		events:    make(chan Event, 256),
		errs:      make(chan error, 16),
		done:      make(chan struct{}),
	}
}

// Name identifies the implementation.
func (s *PollSource) Name() string { return "poll" }

// Start primes the snapshot from the current directory contents and begins
// the scan loop. Priming means pre-existing files do not surface as created
// events; the dispatcher's process-existing sweep owns startup conversion.
func (s *PollSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("poll source already running")
	}

	initial, err := s.scan()
	if err != nil {
		return err
	}
	s.snapshot = initial

	s.running = true
	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop halts the scan loop and closes the channels.
func (s *PollSource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()

	close(s.events)
	close(s.errs)
}

// Events returns the event channel.
func (s *PollSource) Events() <-chan Event { return s.events }

// Errors returns the error channel.
func (s *PollSource) Errors() <-chan error { return s.errs }

func (s *PollSource) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PollSource) tick(ctx context.Context) {
	current, err := s.scan()
	if err != nil {
		select {
		case s.errs <- err:
		case <-s.done:
		case <-ctx.Done():
		}
		return
	}

	previous := s.snapshot

	for path, stamp := range current {
		prior, seen := previous[path]
		switch {
		case !seen:
			s.emit(ctx, Event{Path: path, Kind: KindCreated})
		case prior.size != stamp.size || !prior.mtime.Equal(stamp.mtime):
			s.emit(ctx, Event{Path: path, Kind: KindModified})
		}
	}
	for path := range previous {
		if _, still := current[path]; !still {
			s.emit(ctx, Event{Path: path, Kind: KindDeleted})
		}
	}

	s.snapshot = current
}

func (s *PollSource) emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-s.done:
	case <-ctx.Done():
	}
}

// scan lists candidate files under every root and records their stamps.
func (s *PollSource) scan() (map[string]fileStamp, error) {
	result := make(map[string]fileStamp)
	for _, root := range s.roots {
		if err := s.scanRoot(root, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *PollSource) scanRoot(root string, out map[string]fileStamp) error {
	if !s.recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if !IsCandidate(path) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue // vanished between ReadDir and Info
			}
			out[path] = fileStamp{size: info.Size(), mtime: info.ModTime()}
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable subtree; skip rather than abort the scan
		}
		if d.IsDir() || !IsCandidate(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[path] = fileStamp{size: info.Size(), mtime: info.ModTime()}
		return nil
	})
}
