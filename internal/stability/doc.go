// Package stability decides when a watched file has stopped changing and is
// safe to read. It tracks a small state machine per path (Observing, Stable,
// Converting, Idle) driven by size/mtime observations and a quiet period.
// The gate holds no locks: the dispatcher loop is its only caller, and all
// methods take the current time explicitly so tests control the clock.
package stability
