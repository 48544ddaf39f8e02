package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// capturedAtLayout is fixed-width so captured_at sorts lexically.
const capturedAtLayout = "2006-01-02T15:04:05.000000Z"

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertRound writes a rounds row. Uses ON CONFLICT(id) DO UPDATE so that
// re-seeding a fixture refreshes the round's metadata.
func (s *Store) InsertRound(ctx context.Context, r Round) error {
	return insertRound(ctx, s.db, r)
}

// InsertPlayerStats appends a legacy stats row. Several rows for the same
// (round, guid) are allowed and summed by LegacyTimings.
func (s *Store) InsertPlayerStats(ctx context.Context, p PlayerStats) error {
	return insertPlayerStats(ctx, s.db, p)
}

// InsertRoundTeams appends a telemetry round snapshot.
func (s *Store) InsertRoundTeams(ctx context.Context, t RoundTeams) error {
	return insertRoundTeams(ctx, s.db, t)
}

// InsertSpawnStats appends a telemetry per-player row.
func (s *Store) InsertSpawnStats(ctx context.Context, sp SpawnStats) error {
	return insertSpawnStats(ctx, s.db, sp)
}

func insertRound(ctx context.Context, db execer, r Round) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO rounds (id, map_name, round_number, round_date, round_time, gaming_session_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			map_name = excluded.map_name,
			round_number = excluded.round_number,
			round_date = excluded.round_date,
			round_time = excluded.round_time,
			gaming_session_id = excluded.gaming_session_id
	`,
		r.ID,
		r.MapName,
		r.RoundNumber,
		nullString(r.RoundDate),
		nullString(r.RoundTime),
		r.GamingSessionID,
	)
	if err != nil {
		return fmt.Errorf("write round %d: %w", r.ID, err)
	}
	return nil
}

func insertPlayerStats(ctx context.Context, db execer, p PlayerStats) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO player_comprehensive_stats
		(round_id, player_guid, player_name, team, time_played_seconds, time_dead_minutes, denied_playtime)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.RoundID,
		p.PlayerGUID,
		p.PlayerName,
		p.Team,
		p.TimePlayedSeconds,
		p.TimeDeadMinutes,
		p.DeniedPlaytime,
	)
	if err != nil {
		return fmt.Errorf("write player stats (round %d, guid %s): %w", p.RoundID, p.PlayerGUID, err)
	}
	return nil
}

func insertRoundTeams(ctx context.Context, db execer, t RoundTeams) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO lua_round_teams (round_id, actual_duration_seconds, captured_at)
		VALUES (?, ?, ?)
	`,
		t.RoundID,
		t.ActualDurationSeconds,
		t.CapturedAt.UTC().Format(capturedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("write round teams (round %d): %w", t.RoundID, err)
	}
	return nil
}

func insertSpawnStats(ctx context.Context, db execer, sp SpawnStats) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO lua_spawn_stats (round_id, player_guid, player_name, dead_seconds)
		VALUES (?, ?, ?, ?)
	`,
		sp.RoundID,
		sp.PlayerGUID,
		sp.PlayerName,
		sp.DeadSeconds,
	)
	if err != nil {
		return fmt.Errorf("write spawn stats (round %d, guid %s): %w", sp.RoundID, sp.PlayerGUID, err)
	}
	return nil
}

// Seed writes every row of a fixture in one transaction.
// Either the whole fixture is written or nothing is.
func (s *Store) Seed(ctx context.Context, f *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, r := range f.Rounds {
		if err := insertRound(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, p := range f.PlayerStats {
		if err := insertPlayerStats(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, t := range f.RoundTeams {
		if err := insertRoundTeams(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, sp := range f.SpawnStats {
		if err := insertSpawnStats(ctx, tx, sp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// defaultCapturedAt is used for snapshots whose fixture omits captured_at.
var defaultCapturedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
