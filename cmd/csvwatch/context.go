package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"csvwatch/internal/config"
	"csvwatch/internal/convert"
	"csvwatch/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func newPipeline(cfg *config.Config, logger *slog.Logger) *convert.Pipeline {
	return convert.NewPipeline(convert.Options{
		OutputDir: cfg.Output.Dir,
		Lines:     cfg.LinesMode(),
		Indent:    cfg.Output.Indent,
		Overwrite: cfg.Output.Overwrite,
		Delimiter: cfg.CSV.Delimiter,
		Quote:     cfg.CSV.Quote,
		Encoding:  cfg.CSV.Encoding,
	}, logger)
}

func newLogger(cfg *config.Config, paths ...string) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: paths,
	})
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
