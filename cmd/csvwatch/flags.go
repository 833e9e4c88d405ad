package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"csvwatch/internal/config"
)

// conversionFlags are the overrides shared by the watch and convert
// commands. Config file values apply first; a flag the user set wins.
type conversionFlags struct {
	outputDir       string
	recursive       bool
	processExisting bool
	lines           bool
	overwrite       bool
	indent          int
	delimiter       string
	quote           string
	encoding        string
	logLevel        string
}

func addConversionFlags(cmd *cobra.Command, f *conversionFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.outputDir, "out", "o", "", "Directory for JSON output (default: first watch directory)")
	flags.BoolVarP(&f.recursive, "recursive", "r", false, "Recurse into subdirectories")
	flags.BoolVar(&f.lines, "lines", false, "Write JSON Lines (.jsonl) instead of an array (.json)")
	flags.BoolVar(&f.overwrite, "overwrite", false, "Overwrite existing outputs instead of uniquifying names")
	flags.IntVar(&f.indent, "indent", 0, "Indent level for pretty JSON (array mode only)")
	flags.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter (default: auto-detect)")
	flags.StringVar(&f.quote, "quotechar", "", "CSV quote character (default: auto-detect)")
	flags.StringVar(&f.encoding, "encoding", "", "Input file encoding (default: utf-8-sig)")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// apply merges positional watch directories and changed flags into cfg and
// re-validates the result.
func (f *conversionFlags) apply(cmd *cobra.Command, cfg *config.Config, dirs []string) error {
	if len(dirs) > 0 {
		expanded := make([]string, 0, len(dirs))
		for _, dir := range dirs {
			path, err := config.ExpandPath(dir)
			if err != nil {
				return fmt.Errorf("resolve watch directory %q: %w", dir, err)
			}
			expanded = append(expanded, path)
		}
		cfg.Watch.Dirs = expanded
	}

	flags := cmd.Flags()
	if flags.Changed("out") {
		path, err := config.ExpandPath(f.outputDir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Output.Dir = path
	}
	if flags.Changed("recursive") {
		cfg.Watch.Recursive = f.recursive
	}
	if flags.Changed("process-existing") {
		cfg.Watch.ProcessExisting = f.processExisting
	}
	if flags.Changed("lines") {
		cfg.Output.Format = config.FormatArray
		if f.lines {
			cfg.Output.Format = config.FormatLines
		}
	}
	if flags.Changed("overwrite") {
		cfg.Output.Overwrite = f.overwrite
	}
	if flags.Changed("indent") {
		cfg.Output.Indent = f.indent
	}
	if flags.Changed("delimiter") {
		cfg.CSV.Delimiter = f.delimiter
	}
	if flags.Changed("quotechar") {
		cfg.CSV.Quote = f.quote
	}
	if flags.Changed("encoding") {
		cfg.CSV.Encoding = f.encoding
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}

	if cfg.Output.Dir == "" && len(cfg.Watch.Dirs) > 0 {
		cfg.Output.Dir = cfg.Watch.Dirs[0]
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.ValidateWatch()
}
