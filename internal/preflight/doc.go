// Package preflight validates the environment before the watcher goes live:
// watch directories must exist and be readable, the output directory must be
// writable, and the configured input encoding must resolve. A failed check
// is a startup error; the process exits non-zero instead of limping along.
package preflight
