// Package queue is the run-scoped conversion ledger. Every conversion job
// the dispatcher schedules is recorded in an in-memory SQLite database with
// a validated status lifecycle, which gives the watcher three things: the
// at-most-one-conversion-per-fingerprint dedupe check, the last completed
// content hash per source path (so a touched-but-unchanged file is not
// converted twice), and the summary counts shown by the status and convert
// commands. Nothing persists across runs.
package queue
