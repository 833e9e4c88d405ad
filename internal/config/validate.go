package config

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Validate ensures the configuration is usable. Watch directories are
// validated separately by ValidateWatch because they may arrive as CLI
// arguments after the config file is loaded.
func (c *Config) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateCSV(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if c.Workers.Count <= 0 {
		return errors.New("workers.count must be positive")
	}
	return nil
}

// ValidateWatch checks that at least one watch directory is configured.
// Existence and readability are checked by the preflight package so the
// error message can name the failing directory.
func (c *Config) ValidateWatch() error {
	if len(c.Watch.Dirs) == 0 {
		return errors.New("at least one watch directory is required (watch.dirs or command arguments)")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case FormatArray, FormatLines:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatArray, FormatLines, c.Output.Format)
	}
	if c.Output.Indent < 0 {
		return errors.New("output.indent must not be negative")
	}
	return nil
}

func (c *Config) validateCSV() error {
	if err := validateSingleRune("csv.delimiter", c.CSV.Delimiter); err != nil {
		return err
	}
	if err := validateSingleRune("csv.quote", c.CSV.Quote); err != nil {
		return err
	}
	return nil
}

func validateSingleRune(field, value string) error {
	if value == "" {
		return nil
	}
	if utf8.RuneCountInString(value) != 1 {
		return fmt.Errorf("%s must be a single character, got %q", field, value)
	}
	return nil
}

func (c *Config) validateTiming() error {
	for field, value := range map[string]int{
		"timing.quiet_period_ms":  c.Timing.QuietPeriodMS,
		"timing.poll_interval_ms": c.Timing.PollIntervalMS,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
	}
	if c.Timing.ShutdownGraceMS < 0 {
		return errors.New("timing.shutdown_grace_ms must not be negative")
	}
	return nil
}
