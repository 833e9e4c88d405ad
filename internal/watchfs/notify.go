package watchfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"csvwatch/internal/logging"
)

// NotifySource emits events from OS-level change notifications. Rapid
// repeated writes are not coalesced here; the stability gate owns debounce.
type NotifySource struct {
	watcher   *fsnotify.Watcher
	roots     []string
	recursive bool
	logger    *slog.Logger

	events chan Event
	errs   chan error
	done   chan struct{}

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewNotifySource creates a notification-backed source for the given roots.
// Construction fails when the OS watch facility is unavailable, which is the
// signal for callers to fall back to polling.
func NewNotifySource(roots []string, recursive bool, logger *slog.Logger) (*NotifySource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &NotifySource{
		watcher:   watcher,
		roots:     append([]string{}, roots...),
		recursive: recursive,
		logger:    logging.NewComponentLogger(logger, "notify-source"),
		events:    make(chan Event, 256),
		errs:      make(chan error, 16),
		done:      make(chan struct{}),
	}, nil
}

// Name identifies the implementation.
func (s *NotifySource) Name() string { return "notify" }

// Start registers the watch roots and begins translating events.
func (s *NotifySource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("notify source already running")
	}

	for _, root := range s.roots {
		if err := s.addTree(root); err != nil {
			_ = s.watcher.Close()
			return err
		}
	}

	s.running = true
	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

func (s *NotifySource) addTree(root string) error {
	if err := s.watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !s.recursive {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return err
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Stop halts event translation and closes the channels.
func (s *NotifySource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.done)
	_ = s.watcher.Close()
	s.wg.Wait()

	close(s.events)
	close(s.errs)
}

// Events returns the event channel.
func (s *NotifySource) Events() <-chan Event { return s.events }

// Errors returns the error channel.
func (s *NotifySource) Errors() <-chan error { return s.errs }

func (s *NotifySource) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case raw, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleRaw(ctx, raw)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *NotifySource) handleRaw(ctx context.Context, raw fsnotify.Event) {
	// New subdirectories need their own watch in recursive mode, and any
	// files already inside them were created before the watch landed.
	if s.recursive && raw.Has(fsnotify.Create) {
		if info, err := os.Stat(raw.Name); err == nil && info.IsDir() {
			if err := s.watcher.Add(raw.Name); err != nil {
				s.logger.Warn("failed to watch new subdirectory",
					logging.Error(err),
					logging.String(logging.FieldWatchDir, raw.Name),
				)
				return
			}
			s.emitExisting(ctx, raw.Name)
			return
		}
	}

	event, ok := translate(raw)
	if !ok {
		return
	}
	s.emit(ctx, event)
}

func (s *NotifySource) emitExisting(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if IsCandidate(path) {
			s.emit(ctx, Event{Path: path, Kind: KindCreated})
		}
	}
}

func (s *NotifySource) emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-s.done:
	case <-ctx.Done():
	}
}

// translate converts an fsnotify event to a watchfs event. The second result
// is false for events that should be ignored (non-candidates, chmod ticks).
func translate(raw fsnotify.Event) (Event, bool) {
	if !IsCandidate(raw.Name) {
		return Event{}, false
	}

	var kind Kind
	switch {
	case raw.Has(fsnotify.Create):
		kind = KindCreated
	case raw.Has(fsnotify.Write):
		kind = KindModified
	case raw.Has(fsnotify.Remove):
		kind = KindDeleted
	case raw.Has(fsnotify.Rename):
		// The old name is gone; the new name arrives as its own create.
		kind = KindDeleted
	default:
		return Event{}, false
	}

	return Event{Path: raw.Name, Kind: kind}, true
}
