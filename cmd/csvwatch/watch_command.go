package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"csvwatch/internal/daemon"
	"csvwatch/internal/dispatcher"
	"csvwatch/internal/logging"
	"csvwatch/internal/queue"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags conversionFlags

	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Watch directories and convert stable CSV files to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, &flags, args)
		},
	}

	addConversionFlags(cmd, &flags)
	cmd.Flags().BoolVar(&flags.processExisting, "process-existing", false, "Convert CSV files already present at startup")
	return cmd
}

func runWatch(cmd *cobra.Command, ctx *commandContext, flags *conversionFlags, args []string) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := flags.apply(cmd, cfg, args); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Logging.Dir, fmt.Sprintf("csvwatch-%s.log", runID))
	logger, err := newLogger(cfg, "stdout", logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	disp := dispatcher.New(cfg, store, newPipeline(cfg, logger), logger)
	d, err := daemon.New(cfg, store, disp, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("shutting down", logging.Args(logging.String(logging.FieldEventType, "shutdown"))...)
	d.Stop()

	summary, err := store.Summarize(cmd.Context())
	if err == nil && summary.Total > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummaryTable(summary))
	}
	return nil
}

func renderSummaryTable(summary queue.Summary) string {
	return renderTable(
		[]string{"Total", "Completed", "Skipped", "Failed"},
		[][]string{{
			fmt.Sprintf("%d", summary.Total),
			fmt.Sprintf("%d", summary.Completed),
			fmt.Sprintf("%d", summary.Skipped),
			fmt.Sprintf("%d", summary.Failed),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	)
}
