package preflight

import (
	"errors"
	"fmt"
	"strings"

	"csvwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ErrStartup marks a fatal environment problem found before the watcher
// went live.
var ErrStartup = errors.New("startup check failed")

// RunAll executes all startup checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, dir := range cfg.Watch.Dirs {
		results = append(results, CheckWatchDirectory(dir))
	}
	results = append(results, CheckOutputDirectory(cfg.Output.Dir))
	results = append(results, CheckFreeSpace(cfg.Output.Dir))
	results = append(results, CheckEncoding(cfg.CSV.Encoding))
	return results
}

// Err collapses failed results into a single startup error, or nil when
// everything passed.
func Err(results []Result) error {
	var failures []string
	for _, result := range results {
		if !result.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrStartup, strings.Join(failures, "; "))
}
