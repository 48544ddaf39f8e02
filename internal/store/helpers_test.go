package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	guidAlpha = "A1B2C3D4E5F60718293A4B5C6D7E8F90"
	guidBravo = "B2C3D4E5F60718293A4B5C6D7E8F90A1"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func intPtr(v int) *int { return &v }

func capturedAt(minute int) time.Time {
	return time.Date(2026, 1, 10, 21, minute, 0, 0, time.UTC)
}

// seedTwoRounds writes rounds 101 and 102 with legacy stats for alpha and
// bravo and telemetry for alpha only.
func seedTwoRounds(t *testing.T, st *Store) {
	t.Helper()
	err := st.Seed(context.Background(), &Fixture{
		Rounds: []Round{
			{ID: 101, MapName: "supply", RoundNumber: 1},
			{ID: 102, MapName: "supply", RoundNumber: 2},
		},
		PlayerStats: []PlayerStats{
			{RoundID: 101, PlayerGUID: guidBravo, PlayerName: "^1bravo", TimePlayedSeconds: 600, TimeDeadMinutes: 1.5, DeniedPlaytime: 30},
			{RoundID: 101, PlayerGUID: guidAlpha, PlayerName: "alpha", TimePlayedSeconds: 600, TimeDeadMinutes: 2.0, DeniedPlaytime: 40},
			{RoundID: 102, PlayerGUID: guidAlpha, PlayerName: "alpha", TimePlayedSeconds: 300, TimeDeadMinutes: 1.0, DeniedPlaytime: 10},
			{RoundID: 102, PlayerGUID: guidAlpha, PlayerName: "alpha", TimePlayedSeconds: 180, TimeDeadMinutes: 0.5, DeniedPlaytime: 5},
		},
		RoundTeams: []RoundTeams{
			{RoundID: 101, ActualDurationSeconds: intPtr(590), CapturedAt: capturedAt(40)},
			{RoundID: 101, ActualDurationSeconds: intPtr(600), CapturedAt: capturedAt(45)},
		},
		SpawnStats: []SpawnStats{
			{RoundID: 101, PlayerGUID: "A1B2C3D4", DeadSeconds: 100},
			{RoundID: 101, PlayerGUID: "a1b2c3d4", DeadSeconds: 20},
			{RoundID: 102, PlayerGUID: "a1b2c3d4", DeadSeconds: 60},
		},
	})
	require.NoError(t, err)
}
