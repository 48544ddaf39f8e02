package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iamez/slomix-sub001/internal/config"
	"github.com/iamez/slomix-sub001/internal/store"
)

// SeedResult is the payload of the seed command.
type SeedResult struct {
	Database    string `json:"database"`
	Rounds      int    `json:"rounds"`
	PlayerStats int    `json:"player_stats"`
	RoundTeams  int    `json:"round_teams"`
	SpawnStats  int    `json:"spawn_stats"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a YAML fixture into the SQLite database",
		Long: `Load rounds, legacy stats and telemetry from a YAML fixture into the
SQLite database, creating it if needed. Rounds are upserted; other rows
are appended.

Examples:
  timingshadow seed ./fixtures/two_rounds.yaml --db ./slomix.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSeed(opts *RootOptions, fixturePath string, cmd *cobra.Command) error {
	cfg := opts.Config
	if cfg.Driver != config.DriverSQLite {
		return NewExitError(ExitCommandError, fmt.Sprintf("seed supports the sqlite driver only, got %q", cfg.Driver))
	}

	if _, err := os.Stat(fixturePath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("fixture not found: %s", fixturePath))
	}

	fixture, err := store.LoadFixture(fixturePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid fixture", err)
	}

	logger := opts.logger()
	logger.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.Seed(commandContext(cmd.Context()), fixture); err != nil {
		if opts.Format == "json" {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if fmtErr := formatter.Error(ErrCodeStoreFailed, err.Error(), nil); fmtErr != nil {
				return fmtErr
			}
		}
		return WrapExitError(ExitFailure, "seed failed", err)
	}

	result := SeedResult{
		Database:    cfg.Database,
		Rounds:      len(fixture.Rounds),
		PlayerStats: len(fixture.PlayerStats),
		RoundTeams:  len(fixture.RoundTeams),
		SpawnStats:  len(fixture.SpawnStats),
	}
	logger.Info("fixture seeded", "fixture", fixturePath, "rounds", result.Rounds)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d rounds, %d player stats, %d round teams, %d spawn stats\n",
		result.Database, result.Rounds, result.PlayerStats, result.RoundTeams, result.SpawnStats)
	return nil
}
