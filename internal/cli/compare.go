package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iamez/slomix-sub001/internal/engine"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Force  bool
	Top    int
	Metric string
	Signed bool
}

// TopReport is the payload of compare --top.
type TopReport struct {
	RunID    string                             `json:"run_id"`
	RoundIDs []int64                            `json:"round_ids"`
	Metric   string                             `json:"metric"`
	Signed   bool                               `json:"signed"`
	Players  []engine.PlayerSessionTimingShadow `json:"players"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <round-ids...>",
		Short: "Compare legacy timings with telemetry for a set of rounds",
		Long: `Compare legacy dead/denied time with Lua telemetry for the given rounds.

Round ids may be separated by spaces or commas; order and duplicates don't
matter. A CSV debug artifact is written unless --no-artifacts is set.

Exit codes:
  0 - Comparison built
  1 - Comparison failed (legacy or round query error)
  2 - Command error (invalid ids, database unreachable, etc.)

Examples:
  timingshadow compare 9821 9822
  timingshadow compare 9821,9822 --top 5 --metric denied_diff_seconds
  timingshadow compare 9821 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "rebuild even if a cached result exists")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "show only the N players with the largest difference")
	cmd.Flags().StringVar(&opts.Metric, "metric", string(engine.MetricDeadDiff), "ranking metric for --top (dead_diff_seconds|denied_diff_seconds)")
	cmd.Flags().BoolVar(&opts.Signed, "signed", false, "rank by signed difference instead of magnitude")

	return cmd
}

func runCompare(opts *CompareOptions, args []string, cmd *cobra.Command) error {
	ids, err := engine.ParseRoundIDs(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid round ids", err)
	}

	var metric engine.DiffMetric
	if opts.Top > 0 {
		metric, err = engine.ParseDiffMetric(opts.Metric)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid metric", err)
		}
	}

	ctx := commandContext(cmd.Context())
	session, err := openEngine(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := session.Engine.Compare(ctx, ids, opts.Force)
	if err != nil {
		return reportEngineError(opts.RootOptions, cmd, "comparison failed", err)
	}

	w := cmd.OutOrStdout()
	if opts.Top > 0 {
		players, err := result.TopNDiffSummary(opts.Top, metric, !opts.Signed)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid metric", err)
		}
		report := TopReport{
			RunID:    result.RunID,
			RoundIDs: result.RoundIDs,
			Metric:   string(metric),
			Signed:   opts.Signed,
			Players:  players,
		}
		if opts.Format == "json" {
			return writeJSON(w, CLIResponse{Status: "ok", Data: report, RunID: result.RunID})
		}
		return writeTopText(w, report)
	}

	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	return writeCompareText(w, result)
}

// reportEngineError prints err in the configured format and returns an
// ExitError carrying it.
func reportEngineError(opts *RootOptions, cmd *cobra.Command, message string, err error) error {
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		var details interface{}
		var engErr *engine.Error
		if errors.As(err, &engErr) && len(engErr.Details) > 0 {
			details = engErr.Details
		}
		if fmtErr := formatter.Error(errorCode(err), err.Error(), details); fmtErr != nil {
			return fmtErr
		}
	}
	return WrapExitError(ExitFailure, message, err)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeCompareText(w io.Writer, result *engine.SessionTimingShadowResult) error {
	if len(result.RoundIDs) == 0 {
		fmt.Fprintln(w, "No rounds requested.")
		return nil
	}

	fmt.Fprintf(w, "Run %s: %d rounds, %d rows, overall coverage %s%%\n",
		result.RunID, len(result.RoundIDs), len(result.Rows), formatPercent(result.OverallCoveragePercent))
	if result.TelemetryQueryFailed {
		fmt.Fprintln(w, "WARNING: telemetry query failed, all rows use legacy values")
	}
	if result.ArtifactPath != "" {
		fmt.Fprintf(w, "Artifact: %s\n", result.ArtifactPath)
	}
	fmt.Fprintln(w)

	rounds := make([][]string, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		rounds = append(rounds, []string{
			strconv.FormatInt(d.RoundID, 10),
			d.MapName,
			strconv.Itoa(d.RoundNumber),
			fmt.Sprintf("%d/%d", d.ParticipantsWithTelemetry, d.ParticipantCount),
			fmt.Sprintf("%d/%d", d.TelemetryRowsMatched, d.TelemetryRowsTotal),
			formatPercent(d.CoveragePercent) + "%",
		})
	}
	if err := renderTable(w, []string{"round", "map", "no", "players", "rows", "coverage"}, rounds); err != nil {
		return err
	}
	fmt.Fprintln(w)

	return renderTable(w, summaryHeaders, summaryRows(result.Summaries))
}

func writeTopText(w io.Writer, report TopReport) error {
	order := "magnitude"
	if report.Signed {
		order = "signed"
	}
	fmt.Fprintf(w, "Top %d by %s (%s), run %s\n", len(report.Players), report.Metric, order, report.RunID)
	return renderTable(w, summaryHeaders, summaryRows(report.Players))
}

var summaryHeaders = []string{"player", "guid", "rounds", "dead old", "dead new", "dead diff", "denied old", "denied new", "denied diff", "coverage"}

func summaryRows(summaries []engine.PlayerSessionTimingShadow) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.ParticipantName,
			s.ParticipantID,
			strconv.Itoa(s.Rounds),
			strconv.Itoa(s.OldDeadSeconds),
			strconv.Itoa(s.NewDeadSeconds),
			formatSigned(s.DeadDiffSeconds),
			strconv.Itoa(s.OldDeniedPlaytime),
			strconv.Itoa(s.NewDeniedPlaytime),
			formatSigned(s.DeniedDiffSeconds),
			formatPercent(s.CoveragePercent) + "%",
		})
	}
	return rows
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSigned(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
