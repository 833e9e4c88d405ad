package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOutput()
	c.normalizeCSV()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	for i, dir := range c.Watch.Dirs {
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("watch.dirs[%d]: %w", i, err)
		}
		c.Watch.Dirs[i] = expanded
	}

	var err error
	if strings.TrimSpace(c.Output.Dir) != "" {
		if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
			return fmt.Errorf("output.dir: %w", err)
		}
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = FormatArray
	}
	// Output dir defaults to the first watch dir once one is known.
	if strings.TrimSpace(c.Output.Dir) == "" && len(c.Watch.Dirs) > 0 {
		c.Output.Dir = c.Watch.Dirs[0]
	}
}

func (c *Config) normalizeCSV() {
	c.CSV.Encoding = strings.TrimSpace(c.CSV.Encoding)
	if c.CSV.Encoding == "" {
		c.CSV.Encoding = defaultEncoding
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
