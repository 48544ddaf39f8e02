package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iamez/slomix-sub001/internal/engine"
)

// PlayerOptions holds flags for the player command.
type PlayerOptions struct {
	*RootOptions
}

// PlayerReport is the payload of the player command.
type PlayerReport struct {
	RunID   string                           `json:"run_id"`
	Summary engine.PlayerSessionTimingShadow `json:"summary"`
	Rounds  []engine.PlayerRoundTimingShadow `json:"rounds"`
}

// NewPlayerCommand creates the player command.
func NewPlayerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "player <guid> <round-ids...>",
		Short: "Show one player's timing shadow across rounds",
		Long: `Show the session summary and per-round rows for one player.

The guid may be the full identifier or its 8-character telemetry prefix.

Exit codes:
  0 - Player found
  1 - Player not in the requested rounds, or comparison failed
  2 - Command error

Examples:
  timingshadow player A1B2C3D4E5F60718293A4B5C6D7E8F90 9821 9822
  timingshadow player a1b2c3d4 9821,9822 --format json`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayer(opts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runPlayer(opts *PlayerOptions, participant string, roundArgs []string, cmd *cobra.Command) error {
	ids, err := engine.ParseRoundIDs(roundArgs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid round ids", err)
	}

	ctx := commandContext(cmd.Context())
	session, err := openEngine(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := session.Engine.Compare(ctx, ids, false)
	if err != nil {
		return reportEngineError(opts.RootOptions, cmd, "comparison failed", err)
	}

	w := cmd.OutOrStdout()
	summary, ok := result.PlayerSummary(participant)
	if !ok {
		message := fmt.Sprintf("player %s not found in rounds %v", participant, result.RoundIDs)
		if opts.Format == "json" {
			formatter := &OutputFormatter{Format: opts.Format, Writer: w}
			if err := formatter.Error(ErrCodeNotFound, message, nil); err != nil {
				return err
			}
		}
		return NewExitError(ExitFailure, message)
	}

	report := PlayerReport{
		RunID:   result.RunID,
		Summary: summary,
		Rounds:  result.PlayerRounds(participant),
	}

	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: report, RunID: result.RunID})
	}
	return writePlayerText(w, report)
}

func writePlayerText(w io.Writer, report PlayerReport) error {
	s := report.Summary
	fmt.Fprintf(w, "%s (%s), %d rounds, coverage %s%%\n",
		s.ParticipantName, s.ParticipantID, s.Rounds, formatPercent(s.CoveragePercent))
	fmt.Fprintf(w, "  dead:   %d -> %d (%s)\n", s.OldDeadSeconds, s.NewDeadSeconds, formatSigned(s.DeadDiffSeconds))
	fmt.Fprintf(w, "  denied: %d -> %d (%s)\n", s.OldDeniedPlaytime, s.NewDeniedPlaytime, formatSigned(s.DeniedDiffSeconds))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(report.Rounds))
	for _, r := range report.Rounds {
		rows = append(rows, []string{
			strconv.FormatInt(r.RoundID, 10),
			r.MapName,
			strconv.Itoa(r.OldTimePlayedSeconds),
			strconv.Itoa(r.OldDeadSeconds),
			strconv.Itoa(r.NewDeadSeconds),
			strconv.Itoa(r.OldDeniedPlaytime),
			strconv.Itoa(r.NewDeniedPlaytime),
			r.FallbackReason,
		})
	}
	return renderTable(w, []string{"round", "map", "played", "dead old", "dead new", "denied old", "denied new", "reason"}, rows)
}
