package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"csvwatch/internal/config"
	"csvwatch/internal/convert"
	"csvwatch/internal/preflight"
	"csvwatch/internal/queue"
	"csvwatch/internal/stability"
	"csvwatch/internal/watchfs"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags conversionFlags

	cmd := &cobra.Command{
		Use:   "convert <file-or-dir>...",
		Short: "Convert CSV files to JSON once, without watching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, ctx, &flags, args)
		},
	}

	addConversionFlags(cmd, &flags)
	return cmd
}

func runConvert(cmd *cobra.Command, ctx *commandContext, flags *conversionFlags, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sources, dirs, err := collectSources(args, flags.recursive)
	if err != nil {
		return err
	}
	if err := flags.apply(cmd, cfg, dirs); err != nil {
		return err
	}
	if result := preflight.CheckOutputDirectory(cfg.Output.Dir); !result.Passed {
		return fmt.Errorf("%w: %s: %s", preflight.ErrStartup, result.Name, result.Detail)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no CSV files found in %v", args)
	}

	logger, err := newLogger(cfg, "stderr")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	pipeline := newPipeline(cfg, logger)
	failed := 0
	rows := make([][]string, 0, len(sources))
	for _, source := range sources {
		row, ok := convertOne(cmd.Context(), store, pipeline, source)
		if !ok {
			failed++
		}
		rows = append(rows, row)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Source", "Status", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))

	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(sources))
	}
	return nil
}

func convertOne(ctx context.Context, store *queue.Store, pipeline *convert.Pipeline, source string) ([]string, bool) {
	fp, ok := stability.Stat(source)
	if !ok {
		return []string{source, "failed", "not a readable file"}, false
	}

	job, err := store.Enqueue(ctx, uuid.NewString(), source, fp)
	if err != nil {
		return []string{source, "failed", err.Error()}, false
	}
	_ = store.MarkConverting(ctx, job.ID)

	result, err := pipeline.Run(ctx, convert.Job{
		ID:          job.RequestID,
		SourcePath:  source,
		Fingerprint: fp,
	})
	if err != nil {
		_ = store.MarkFailed(ctx, job.ID, string(convert.KindOf(err)), err.Error())
		return []string{source, "failed", err.Error()}, false
	}
	_ = store.MarkCompleted(ctx, job.ID, result.OutputPath, result.ContentHash, result.Records)
	return []string{source, "ok", fmt.Sprintf("%s (%d records)", result.OutputPath, result.Records)}, true
}

// collectSources resolves the positional arguments into concrete CSV files.
// Directory arguments double as the config's watch dirs so output-dir
// defaulting behaves like watch mode.
func collectSources(args []string, recursive bool) (sources, dirs []string, err error) {
	for _, arg := range args {
		path, expandErr := config.ExpandPath(arg)
		if expandErr != nil {
			return nil, nil, fmt.Errorf("resolve %q: %w", arg, expandErr)
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, nil, fmt.Errorf("stat %q: %w", arg, statErr)
		}
		if !info.IsDir() {
			sources = append(sources, path)
			dirs = appendUnique(dirs, filepath.Dir(path))
			continue
		}

		dirs = appendUnique(dirs, path)
		walkErr := filepath.WalkDir(path, func(entry string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if entry != path && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if watchfs.IsCandidate(entry) {
				sources = append(sources, entry)
			}
			return nil
		})
		if walkErr != nil {
			return nil, nil, fmt.Errorf("scan %q: %w", arg, walkErr)
		}
	}
	return sources, dirs, nil
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
