package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusConverting,
	StatusCompleted,
	StatusSkipped,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// validTransitions lists the permitted status moves. Anything else is a
// programming error surfaced by the store.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConverting},
	StatusConverting: {StatusCompleted, StatusSkipped, StatusFailed},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

// Job is one recorded conversion attempt for a source file version.
type Job struct {
	ID           int64
	RequestID    string
	SourcePath   string
	Size         int64
	ModTimeNS    int64
	Status       Status
	OutputPath   string
	ContentHash  string
	Records      int
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary aggregates job counts per lifecycle state for status output.
type Summary struct {
	Total      int
	Pending    int
	Converting int
	Completed  int
	Skipped    int
	Failed     int
}
