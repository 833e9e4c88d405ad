package stability

import (
	"os"
	"time"
)

// State is the lifecycle position of a tracked path.
type State int

const (
	// StateUnseen means the path is not tracked.
	StateUnseen State = iota
	// StateObserving means observations are being collected.
	StateObserving
	// StateStable means the quiet period elapsed and the path awaits claim.
	StateStable
	// StateConverting means a conversion job holds the path.
	StateConverting
	// StateIdle means a conversion finished and no new change has arrived.
	StateIdle
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateObserving:
		return "observing"
	case StateStable:
		return "stable"
	case StateConverting:
		return "converting"
	case StateIdle:
		return "idle"
	default:
		return "unseen"
	}
}

// Fingerprint is the cheap size+mtime version token for a file.
type Fingerprint struct {
	Size    int64
	ModTime time.Time
}

// Equal reports whether two fingerprints match.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// Stat captures the current fingerprint of path. The second result is false
// when the file is missing or not a regular file.
func Stat(path string) (Fingerprint, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Fingerprint{}, false
	}
	return Fingerprint{Size: info.Size(), ModTime: info.ModTime()}, true
}

type entry struct {
	state State
	// stamp is the most recent observation.
	stamp Fingerprint
	// streakStart is when the current run of identical observations began.
	streakStart time.Time
	// claimStamp is the fingerprint at the moment the path was claimed.
	claimStamp Fingerprint
	// idleSince orders Idle entries for pruning.
	idleSince time.Time
}

// Idle entries are kept so a later re-modification of an already-converted
// file is recognized, but the table must not grow without bound in
// directories with a deep history. Oldest Idle entries are pruned past this
// count.
const maxIdleEntries = 4096

// Gate tracks stabilization state for every observed path.
type Gate struct {
	quiet    time.Duration
	entries  map[string]*entry
	openable func(path string) bool
}

// NewGate creates a gate with the given quiet period.
func NewGate(quiet time.Duration) *Gate {
	return &Gate{
		quiet:    quiet,
		entries:  make(map[string]*entry),
		openable: canOpen,
	}
}

func canOpen(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Observe records a fingerprint observation for path at the given time.
// A changed fingerprint restarts the quiet streak; an identical one lets it
// age. Observations on Idle entries with a moved fingerprint re-enter
// Observing. Observations during Converting only update the stamp; the
// completion handler decides whether re-observation is needed.
func (g *Gate) Observe(path string, fp Fingerprint, now time.Time) {
	e, ok := g.entries[path]
	if !ok {
		g.entries[path] = &entry{state: StateObserving, stamp: fp, streakStart: now}
		return
	}

	switch e.state {
	case StateObserving, StateStable:
		if !e.stamp.Equal(fp) {
			e.stamp = fp
			e.streakStart = now
			e.state = StateObserving
		}
	case StateConverting:
		e.stamp = fp
	case StateIdle:
		if !e.stamp.Equal(fp) {
			e.stamp = fp
			e.streakStart = now
			e.state = StateObserving
		}
	}
}

// Forget drops all tracking state for path (file deleted or unreadable).
func (g *Gate) Forget(path string) {
	delete(g.entries, path)
}

// Observing returns the paths that need a fresh stat on the next tick.
func (g *Gate) Observing() []string {
	var paths []string
	for path, e := range g.entries {
		if e.state == StateObserving {
			paths = append(paths, path)
		}
	}
	return paths
}

// Promote moves every Observing entry whose identical-observation streak has
// outlasted the quiet period to Stable and returns the newly stable paths.
// Empty files and files that cannot be opened for reading never promote.
func (g *Gate) Promote(now time.Time) []string {
	var stable []string
	for path, e := range g.entries {
		if e.state != StateObserving {
			continue
		}
		if now.Sub(e.streakStart) < g.quiet {
			continue
		}
		if e.stamp.Size <= 0 {
			continue
		}
		if !g.openable(path) {
			continue
		}
		e.state = StateStable
		stable = append(stable, path)
	}
	return stable
}

// Claim transitions path from Stable to Converting. It returns false when
// the path is not currently Stable, which callers treat as "do not start a
// job".
func (g *Gate) Claim(path string) bool {
	e, ok := g.entries[path]
	if !ok || e.state != StateStable {
		return false
	}
	e.state = StateConverting
	e.claimStamp = e.stamp
	return true
}

// Complete records the end of a conversion job for path. When the file's
// fingerprint moved while the job ran, the path re-enters Observing so it
// re-stabilizes and converts again; otherwise it parks in Idle.
func (g *Gate) Complete(path string, fp Fingerprint, now time.Time) State {
	e, ok := g.entries[path]
	if !ok || e.state != StateConverting {
		return StateUnseen
	}
	if !e.claimStamp.Equal(fp) {
		e.state = StateObserving
		e.stamp = fp
		e.streakStart = now
		return StateObserving
	}
	e.state = StateIdle
	e.idleSince = now
	g.pruneIdle()
	return StateIdle
}

// Stamp returns the most recent fingerprint observed for path.
func (g *Gate) Stamp(path string) (Fingerprint, bool) {
	if e, ok := g.entries[path]; ok {
		return e.stamp, true
	}
	return Fingerprint{}, false
}

// State reports the current state of path.
func (g *Gate) State(path string) State {
	if e, ok := g.entries[path]; ok {
		return e.state
	}
	return StateUnseen
}

// Len reports how many paths are tracked.
func (g *Gate) Len() int {
	return len(g.entries)
}

func (g *Gate) pruneIdle() {
	idle := 0
	for _, e := range g.entries {
		if e.state == StateIdle {
			idle++
		}
	}
	for idle > maxIdleEntries {
		oldestPath := ""
		var oldest time.Time
		for path, e := range g.entries {
			if e.state != StateIdle {
				continue
			}
			if oldestPath == "" || e.idleSince.Before(oldest) {
				oldestPath = path
				oldest = e.idleSince
			}
		}
		if oldestPath == "" {
			return
		}
		delete(g.entries, oldestPath)
		idle--
	}
}
