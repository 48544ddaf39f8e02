package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/iamez/slomix-sub001/internal/engine"
)

// RoundMeta returns metadata for the requested rounds keyed by round id.
// The duration is taken from the most recent lua_round_teams capture;
// NULL or non-positive durations are reported as absent.
//
// Returns an empty map (not nil) if none of the rounds exist.
func (s *Store) RoundMeta(ctx context.Context, roundIDs []int64) (map[int64]engine.RoundMeta, error) {
	meta := make(map[int64]engine.RoundMeta, len(roundIDs))
	if len(roundIDs) == 0 {
		return meta, nil
	}

	placeholders, args := inClause(roundIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.map_name, r.round_number,
			(
				SELECT t.actual_duration_seconds
				FROM lua_round_teams t
				WHERE t.round_id = r.id
				ORDER BY t.captured_at DESC, t.id DESC
				LIMIT 1
			)
		FROM rounds r
		WHERE r.id IN (`+placeholders+`)
		ORDER BY r.id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m        engine.RoundMeta
			duration sql.NullInt64
		)
		if err := rows.Scan(&m.RoundID, &m.MapName, &m.RoundNumber, &duration); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if duration.Valid && duration.Int64 > 0 {
			d := int(duration.Int64)
			m.DurationSeconds = &d
		}
		meta[m.RoundID] = m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}

	return meta, nil
}

// LegacyTimings returns one aggregate per (round, player_guid). Multiple
// stats rows for the same pair are summed. Dead time is stored in minutes;
// it is converted to whole seconds and clamped to [0, time played].
//
// Results are ordered by round_id, player_guid.
// Returns an empty slice (not nil) if no records exist.
func (s *Store) LegacyTimings(ctx context.Context, roundIDs []int64) ([]engine.LegacyTiming, error) {
	if len(roundIDs) == 0 {
		return []engine.LegacyTiming{}, nil
	}

	placeholders, args := inClause(roundIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, player_guid, MAX(player_name),
			COALESCE(SUM(time_played_seconds), 0),
			COALESCE(SUM(time_dead_minutes), 0),
			COALESCE(SUM(denied_playtime), 0)
		FROM player_comprehensive_stats
		WHERE round_id IN (`+placeholders+`)
		GROUP BY round_id, player_guid
		ORDER BY round_id ASC, player_guid COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query player stats: %w", err)
	}
	defer rows.Close()

	timings := []engine.LegacyTiming{}
	for rows.Next() {
		var (
			t           engine.LegacyTiming
			name        sql.NullString
			deadMinutes float64
		)
		if err := rows.Scan(&t.RoundID, &t.ParticipantID, &name, &t.TimePlayedSeconds, &deadMinutes, &t.DeniedPlaytime); err != nil {
			return nil, fmt.Errorf("scan player stats: %w", err)
		}
		t.ParticipantName = engine.NormalizeName(name.String)
		t.TimePlayedSeconds = max(t.TimePlayedSeconds, 0)
		t.DeniedPlaytime = ClampToPlayed(t.DeniedPlaytime, t.TimePlayedSeconds)
		t.TimeDeadSeconds = DeadMinutesToSeconds(deadMinutes, t.TimePlayedSeconds)
		timings = append(timings, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player stats: %w", err)
	}

	return timings, nil
}

// TelemetryTimings returns raw lua_spawn_stats rows with the stored guid
// reduced to its lowercase fingerprint. Rows are not summed here.
//
// Results are ordered by round_id, fingerprint, id.
// Returns an empty slice (not nil) if no records exist.
func (s *Store) TelemetryTimings(ctx context.Context, roundIDs []int64) ([]engine.TelemetryTiming, error) {
	if len(roundIDs) == 0 {
		return []engine.TelemetryTiming{}, nil
	}

	placeholders, args := inClause(roundIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, player_guid, dead_seconds
		FROM lua_spawn_stats
		WHERE round_id IN (`+placeholders+`)
		ORDER BY round_id ASC, LOWER(SUBSTR(TRIM(player_guid), 1, 8)) COLLATE BINARY ASC, id ASC
	`, args...)
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

// DeadMinutesToSeconds converts the legacy fractional-minute dead time to
// whole seconds, clamped to [0, played].
func DeadMinutesToSeconds(minutes float64, played int) int {
	if math.IsNaN(minutes) || minutes <= 0 {
		return 0
	}
	seconds := math.Round(minutes * 60)
	if seconds > float64(played) {
		return max(played, 0)
	}
	return int(seconds)
}

// ClampToPlayed clamps a legacy per-player seconds value to [0, played].
func ClampToPlayed(seconds, played int) int {
	return min(max(seconds, 0), max(played, 0))
}

// inClause returns "?, ?, ?" for len(ids) ids and the matching args.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
