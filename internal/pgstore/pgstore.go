// Package pgstore reads timing inputs from the production PostgreSQL
// database. It mirrors the SQLite store's queries so either backend can
// drive the engine.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iamez/slomix-sub001/internal/engine"
	"github.com/iamez/slomix-sub001/internal/store"
)

var _ engine.Loader = (*DB)(nil)

// DB is a pgx connection pool bound to the stats schema.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool and verifies it with a ping.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.pool.Close()
}

// Pool returns the underlying connection pool for custom queries
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

const roundMetaSQL = `
	SELECT r.id, r.map_name, r.round_number,
		(
			SELECT t.actual_duration_seconds
			FROM lua_round_teams t
			WHERE t.round_id = r.id
			ORDER BY t.captured_at DESC, t.id DESC
			LIMIT 1
		)
	FROM rounds r
	WHERE r.id = ANY($1)
	ORDER BY r.id ASC
`

const legacyTimingsSQL = `
	SELECT round_id, player_guid, COALESCE(MAX(player_name), ''),
		COALESCE(SUM(time_played_seconds), 0)::bigint,
		COALESCE(SUM(time_dead_minutes), 0)::float8,
		COALESCE(SUM(denied_playtime), 0)::bigint
	FROM player_comprehensive_stats
	WHERE round_id = ANY($1)
	GROUP BY round_id, player_guid
	ORDER BY round_id ASC, player_guid COLLATE "C" ASC
`

const telemetryTimingsSQL = `
	SELECT round_id, player_guid, COALESCE(dead_seconds, 0)
	FROM lua_spawn_stats
	WHERE round_id = ANY($1)
	ORDER BY round_id ASC, LOWER(LEFT(TRIM(player_guid), 8)) COLLATE "C" ASC, id ASC
`

// RoundMeta returns metadata for the requested rounds keyed by round id.
// NULL or non-positive durations are reported as absent.
func (db *DB) RoundMeta(ctx context.Context, roundIDs []int64) (map[int64]engine.RoundMeta, error) {
	meta := make(map[int64]engine.RoundMeta, len(roundIDs))
	if len(roundIDs) == 0 {
		return meta, nil
	}

	rows, err := db.pool.Query(ctx, roundMetaSQL, roundIDs)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m        engine.RoundMeta
			mapName  *string
			number   *int
			duration *int
		)
		if err := rows.Scan(&m.RoundID, &mapName, &number, &duration); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if mapName != nil {
			m.MapName = *mapName
		}
		if number != nil {
			m.RoundNumber = *number
		}
		if duration != nil && *duration > 0 {
			m.DurationSeconds = duration
		}
		meta[m.RoundID] = m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}

	return meta, nil
}

// LegacyTimings returns one aggregate per (round, player_guid), with dead
// minutes converted to whole seconds clamped to [0, time played].
func (db *DB) LegacyTimings(ctx context.Context, roundIDs []int64) ([]engine.LegacyTiming, error) {
	if len(roundIDs) == 0 {
		return []engine.LegacyTiming{}, nil
	}

	rows, err := db.pool.Query(ctx, legacyTimingsSQL, roundIDs)
	if err != nil {
		return nil, fmt.Errorf("query player stats: %w", err)
	}
	defer rows.Close()

	timings := []engine.LegacyTiming{}
	for rows.Next() {
		var (
			t              engine.LegacyTiming
			name           string
			played, denied int64
			deadMinutes    float64
		)
		if err := rows.Scan(&t.RoundID, &t.ParticipantID, &name, &played, &deadMinutes, &denied); err != nil {
			return nil, fmt.Errorf("scan player stats: %w", err)
		}
		t.ParticipantName = engine.NormalizeName(name)
		t.TimePlayedSeconds = max(int(played), 0)
		t.DeniedPlaytime = store.ClampToPlayed(int(denied), t.TimePlayedSeconds)
		t.TimeDeadSeconds = store.DeadMinutesToSeconds(deadMinutes, t.TimePlayedSeconds)
		timings = append(timings, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player stats: %w", err)
	}

	return timings, nil
}

// TelemetryTimings returns raw lua_spawn_stats rows keyed by fingerprint.
func (db *DB) TelemetryTimings(ctx context.Context, roundIDs []int64) ([]engine.TelemetryTiming, error) {
	if len(roundIDs) == 0 {
		return []engine.TelemetryTiming{}, nil
	}

	rows, err := db.pool.Query(ctx, telemetryTimingsSQL, roundIDs)
	if err != nil {
		return nil, fmt.Errorf("query spawn stats: %w", err)
	}
	defer rows.Close()

	timings := []engine.TelemetryTiming{}
	for rows.Next() {
		var (
			t    engine.TelemetryTiming
			guid string
		)
		if err := rows.Scan(&t.RoundID, &guid, &t.DeadSeconds); err != nil {
			return nil, fmt.Errorf("scan spawn stats: %w", err)
		}
		t.Fingerprint = engine.Fingerprint(guid)
		timings = append(timings, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spawn stats: %w", err)
	}

	return timings, nil
}
