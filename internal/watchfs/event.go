package watchfs

import "context"

// Kind classifies a file event.
type Kind int

const (
	KindCreated Kind = iota
	KindModified
	KindDeleted
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindModified:
		return "modified"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is a single change notification for a candidate CSV file.
type Event struct {
	Path string
	Kind Kind
}

// Source produces a lazy, infinite stream of events until stopped. A Source
// is not restartable: after Stop the channels are closed for good.
type Source interface {
	// Start begins emitting events. It must be called at most once.
	Start(ctx context.Context) error
	// Events returns the event channel. Closed when the source stops.
	Events() <-chan Event
	// Errors returns the error channel for non-fatal source errors.
	Errors() <-chan error
	// Stop halts the source and blocks until its goroutines exit.
	Stop()
	// Name identifies the implementation for logs.
	Name() string
}
