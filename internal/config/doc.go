// Package config loads, normalizes, and validates the csvwatch TOML
// configuration. CLI flags are merged on top of the loaded config by the
// command layer before the watcher starts.
package config
