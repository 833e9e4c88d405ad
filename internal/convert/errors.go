package convert

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure so callers can decide whether to
// surface it, retry it silently, or drop the job.
type Kind string

const (
	// KindParse marks an unreadable or malformed source. The job is
	// abandoned; a later change to the file retries.
	KindParse Kind = "parse"
	// KindWrite marks a failure to produce the output file. Retried only
	// on the next triggering event.
	KindWrite Kind = "write"
	// KindRace marks a source that vanished or changed between
	// stabilization and the read. Silent retry path.
	KindRace Kind = "race"
)

// Error is a classified conversion failure for a single source path.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind returns the string classification of the error.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

func parseError(path string, err error) *Error {
	return &Error{Kind: KindParse, Path: path, Err: err}
}

func writeError(path string, err error) *Error {
	return &Error{Kind: KindWrite, Path: path, Err: err}
}

func raceError(path string, err error) *Error {
	return &Error{Kind: KindRace, Path: path, Err: err}
}

// KindOf extracts the classification from err. Unclassified errors report
// KindParse, the conservative "log and wait for the next change" bucket.
func KindOf(err error) Kind {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return KindParse
}

// IsRace reports whether err is a silent-retry race abort.
func IsRace(err error) bool {
	return KindOf(err) == KindRace
}
