// Package logging builds the slog loggers used across csvwatch and defines
// the shared attribute helpers and field keys so log output stays uniform
// between the watcher loop, the conversion workers, and the CLI.
package logging
