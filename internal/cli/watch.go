package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamez/slomix-sub001/internal/engine"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval  time.Duration
	Count     int  // stop after this many runs; 0 runs until interrupted
	Artifacts bool // write a CSV artifact on every run
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <round-ids...>",
		Short: "Rebuild a comparison periodically",
		Long: `Rebuild the comparison for the given rounds on a fixed interval while
telemetry for a live session is still arriving. Each run bypasses the
cache; coverage and fallback counts are logged, and --metrics-addr keeps
the Prometheus endpoint current. CSV artifacts are only written with
--artifacts, one per run.

A failed run is logged and the loop continues. Ctrl-C stops it.

Examples:
  timingshadow watch 9821 9822 --interval 30s
  timingshadow watch 9821 --metrics-addr :9102`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Minute, "time between runs")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "stop after N runs (0 = until interrupted)")
	cmd.Flags().BoolVar(&opts.Artifacts, "artifacts", false, "write a CSV artifact on every run")

	return cmd
}

func runWatch(opts *WatchOptions, args []string, cmd *cobra.Command) error {
	ids, err := engine.ParseRoundIDs(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid round ids", err)
	}
	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("interval must be positive, got %s", opts.Interval))
	}
	if opts.Count < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("count must not be negative, got %d", opts.Count))
	}

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd.Context()))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger := opts.logger()
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if !opts.Artifacts {
		opts.Config.WriteArtifacts = false
	}

	session, err := openEngine(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer session.Close()

	w := cmd.OutOrStdout()
	if opts.Format != "json" {
		fmt.Fprintf(w, "Watching rounds %v every %s. Press Ctrl-C to stop.\n", engine.NormalizeRoundIDs(ids), opts.Interval)
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	runs := 0
	for {
		watchOnce(ctx, opts, session.Engine, ids, cmd)
		runs++
		if opts.Count > 0 && runs >= opts.Count {
			break
		}

		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "runs", runs)
			return nil
		case <-ticker.C:
		}
	}

	logger.Info("watch finished", "runs", runs)
	return nil
}

// watchOnce runs one forced comparison and reports it. Errors are logged,
// not returned, so the loop survives a transient database failure.
func watchOnce(ctx context.Context, opts *WatchOptions, eng *engine.Engine, ids []int64, cmd *cobra.Command) {
	logger := opts.logger()

	result, err := eng.Compare(ctx, ids, true)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("watch run failed", "round_ids", ids, "error", err)
		return
	}

	reasons := make(map[string]int)
	for _, d := range result.Diagnostics {
		for reason, n := range d.FallbackReasonCounts {
			reasons[reason] += n
		}
	}
	logger.Info("watch run complete",
		"run_id", result.RunID,
		"rows", len(result.Rows),
		"coverage_percent", result.OverallCoveragePercent,
		"telemetry_query_failed", result.TelemetryQueryFailed,
		"fallback_reasons", reasons,
	)

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(w, CLIResponse{Status: "ok", Data: result, RunID: result.RunID}); err != nil {
			logger.Error("write watch output", "error", err)
		}
		return
	}
	fmt.Fprintf(w, "[%s] run %s: %d rows, coverage %s%%\n",
		result.GeneratedAt.UTC().Format(time.RFC3339), result.RunID, len(result.Rows), formatPercent(result.OverallCoveragePercent))
}
