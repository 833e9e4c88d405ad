package watchfs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"csvwatch/internal/logging"
)

// Options configures source selection.
type Options struct {
	Roots        []string
	Recursive    bool
	PollInterval time.Duration
}

// newNotify is swapped in tests to force the polling fallback.
var newNotify = NewNotifySource

// Open starts the preferred event source for the given roots. OS
// notifications are tried first; when they cannot be initialized the polling
// source takes over transparently with only an informational log. An error
// is returned only when the polling fallback cannot start either (for
// example, a watch root that does not exist), which is fatal for startup.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Source, error) {
	notify, err := newNotify(opts.Roots, opts.Recursive, logger)
	if err == nil {
		err = notify.Start(ctx)
		if err == nil {
			return notify, nil
		}
	}

	logger.Info("OS file notifications unavailable; using polling",
		logging.Error(err),
		logging.Duration("interval", opts.PollInterval),
	)

	poll := NewPollSource(opts.Roots, opts.Recursive, opts.PollInterval, logger)
	if startErr := poll.Start(ctx); startErr != nil {
		return nil, fmt.Errorf("start polling source: %w", startErr)
	}
	return poll, nil
}
