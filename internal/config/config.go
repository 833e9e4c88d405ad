package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Watch describes the directories being observed for CSV files.
type Watch struct {
	Dirs            []string `toml:"dirs"`
	Recursive       bool     `toml:"recursive"`
	ProcessExisting bool     `toml:"process_existing"`
}

// Output controls where converted JSON documents are written and how they
// are shaped.
type Output struct {
	Dir       string `toml:"dir"`
	Format    string `toml:"format"` // "array" or "lines"
	Indent    int    `toml:"indent"` // array mode only; ignored for lines
	Overwrite bool   `toml:"overwrite"`
}

// CSV holds dialect and decoding overrides. Empty delimiter/quote means
// auto-detect from a sample of the file.
type CSV struct {
	Delimiter string `toml:"delimiter"`
	Quote     string `toml:"quote"`
	Encoding  string `toml:"encoding"`
}

// Timing holds the two user-tunable timing constants plus the shutdown
// grace period.
type Timing struct {
	QuietPeriodMS   int `toml:"quiet_period_ms"`
	PollIntervalMS  int `toml:"poll_interval_ms"`
	ShutdownGraceMS int `toml:"shutdown_grace_ms"`
}

// Workers configures the conversion worker pool.
type Workers struct {
	Count int `toml:"count"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for csvwatch.
type Config struct {
	Watch   Watch   `toml:"watch"`
	Output  Output  `toml:"output"`
	CSV     CSV     `toml:"csv"`
	Timing  Timing  `toml:"timing"`
	Workers Workers `toml:"workers"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/csvwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not
// an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv("CSVWATCH_CONFIG")
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("csvwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the watcher needs at runtime.
// Watch directories are deliberately not created: watching a directory that
// does not exist is a startup error, not something to paper over.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Logging.Dir, c.Output.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QuietPeriod returns the stability quiet period as a duration.
func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Timing.QuietPeriodMS) * time.Millisecond
}

// PollInterval returns the polling scan interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timing.PollIntervalMS) * time.Millisecond
}

// ShutdownGrace returns how long draining waits for in-flight conversions.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Timing.ShutdownGraceMS) * time.Millisecond
}

// LinesMode reports whether output.format selects line-delimited JSON.
func (c *Config) LinesMode() bool {
	return c.Output.Format == FormatLines
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
