package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"csvwatch/internal/config"
)

func TestLoadDefaultsWithAbsentFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Output.Format != config.FormatArray {
		t.Fatalf("unexpected default format: %q", cfg.Output.Format)
	}
	if cfg.CSV.Encoding != "utf-8-sig" {
		t.Fatalf("unexpected default encoding: %q", cfg.CSV.Encoding)
	}
	if cfg.Timing.QuietPeriodMS != 1000 || cfg.Timing.PollIntervalMS != 2000 {
		t.Fatalf("unexpected timing defaults: %+v", cfg.Timing)
	}
	if cfg.Workers.Count != 2 {
		t.Fatalf("unexpected worker count: %d", cfg.Workers.Count)
	}
	wantLogDir := filepath.Join(tempHome, ".local", "share", "csvwatch", "logs")
	if cfg.Logging.Dir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Logging.Dir, wantLogDir)
	}
}

func TestLoadExpandsWatchDirsAndDefaultsOutputDir(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := strings.Join([]string{
		`[watch]`,
		`dirs = ["~/drop"]`,
		`recursive = true`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}

	wantDir := filepath.Join(tempHome, "drop")
	if len(cfg.Watch.Dirs) != 1 || cfg.Watch.Dirs[0] != wantDir {
		t.Fatalf("unexpected watch dirs: %v", cfg.Watch.Dirs)
	}
	if !cfg.Watch.Recursive {
		t.Fatal("expected recursive watch")
	}
	if cfg.Output.Dir != wantDir {
		t.Fatalf("output dir should default to first watch dir, got %q", cfg.Output.Dir)
	}
}

func TestLoadHonorsEnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[workers]\ncount = 7\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CSVWATCH_CONFIG", path)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected env config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Workers.Count != 7 {
		t.Fatalf("worker count = %d, want 7", cfg.Workers.Count)
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[output]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported output format")
	}
}

func TestValidateRejectsMultiRuneDelimiter(t *testing.T) {
	cfg := config.Default()
	cfg.CSV.Delimiter = "::"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for multi-character delimiter")
	}

	cfg = config.Default()
	cfg.CSV.Delimiter = "\t"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("tab delimiter should be accepted: %v", err)
	}
}

func TestValidateRejectsNonPositiveTiming(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.QuietPeriodMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero quiet period")
	}
}

func TestValidateWatchRequiresDirs(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateWatch(); err == nil {
		t.Fatal("expected error with no watch dirs")
	}
	cfg.Watch.Dirs = []string{t.TempDir()}
	if err := cfg.ValidateWatch(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
