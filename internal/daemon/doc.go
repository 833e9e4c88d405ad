// Package daemon wraps the dispatcher with process-level concerns: the
// single-instance lock, startup preflight, and a status snapshot for the
// CLI. One daemon per machine-wide lock file; a second invocation fails
// fast instead of double-converting.
package daemon
