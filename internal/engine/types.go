package engine

import "time"

// Fallback reason tags recorded on every PlayerRoundTimingShadow.
const (
	ReasonNone                 = "none"
	ReasonMissingForGUIDPrefix = "lua_missing_for_guid_prefix"
	ReasonMissingForRound      = "lua_missing_for_round"
	ReasonQueryFailed          = "lua_query_failed"
	ReasonDeadNegativeClamped  = "lua_dead_negative_clamped"
	ReasonDeadCapped           = "lua_dead_capped_to_plausible_limit"
	ReasonGUIDPrefixCollision  = "lua_guid_prefix_collision"
)

// ReasonSeparator joins multiple fallback tags.
const ReasonSeparator = "|"

// RoundMeta describes one round from the system of record.
type RoundMeta struct {
	RoundID     int64
	MapName     string
	RoundNumber int

	// DurationSeconds comes from the latest captured telemetry snapshot.
	// Nil when no snapshot exists.
	DurationSeconds *int
}

// LegacyTiming is one legacy aggregate per (round, participant).
// TimeDeadSeconds is already derived from minutes and clamped to TimePlayedSeconds.
type LegacyTiming struct {
	RoundID           int64
	ParticipantID     string
	ParticipantName   string
	TimePlayedSeconds int
	TimeDeadSeconds   int
	DeniedPlaytime    int
}

// TelemetryTiming is one raw telemetry row. Several rows may exist for the
// same (round, fingerprint); the comparator sums them.
type TelemetryTiming struct {
	RoundID     int64
	Fingerprint string
	DeadSeconds int
}

// ComputedShadowTiming is the output of ComputeShadowTiming.
type ComputedShadowTiming struct {
	NewDeadSeconds    int
	NewDeniedPlaytime int
	CapLimitSeconds   int
	TelemetryDeadRaw  *int
	FallbackReason    string
}

// PlayerRoundTimingShadow is the reconciled timing of one participant in one round.
type PlayerRoundTimingShadow struct {
	RoundID              int64  `json:"round_id"`
	MapName              string `json:"map_name"`
	RoundNumber          int    `json:"round_number"`
	ParticipantID        string `json:"participant_id"`
	ParticipantName      string `json:"participant_name"`
	Fingerprint          string `json:"fingerprint"`
	OldTimePlayedSeconds int    `json:"old_time_played_seconds"`
	OldDeadSeconds       int    `json:"old_dead_seconds"`
	OldDeniedPlaytime    int    `json:"old_denied_playtime"`
	NewDeadSeconds       int    `json:"new_dead_seconds"`
	NewDeniedPlaytime    int    `json:"new_denied_playtime"`
	DeadDiffSeconds      int    `json:"dead_diff_seconds"`
	DeniedDiffSeconds    int    `json:"denied_diff_seconds"`
	TelemetryRowCount    int    `json:"telemetry_row_count"`
	TelemetryDeadRaw     *int   `json:"telemetry_dead_raw"`
	TelemetryCapSeconds  int    `json:"telemetry_cap_seconds"`
	RoundDurationSeconds *int   `json:"round_duration_seconds"`
	FallbackReason       string `json:"fallback_reason"`
}

// RoundTimingShadowDiagnostics summarizes telemetry coverage for one requested round.
type RoundTimingShadowDiagnostics struct {
	RoundID                   int64          `json:"round_id"`
	MapName                   string         `json:"map_name"`
	RoundNumber               int            `json:"round_number"`
	ParticipantCount          int            `json:"participant_count"`
	ParticipantsWithTelemetry int            `json:"participants_with_telemetry"`
	TelemetryRowsTotal        int            `json:"telemetry_rows_total"`
	TelemetryRowsMatched      int            `json:"telemetry_rows_matched"`
	CoveragePercent           float64        `json:"coverage_percent"`
	FallbackReasonCounts      map[string]int `json:"fallback_reason_counts"`

	// FingerprintCollisions lists fingerprints shared by more than one
	// participant id in this round, sorted.
	FingerprintCollisions []string `json:"fingerprint_collisions,omitempty"`
}

// PlayerSessionTimingShadow sums one participant's rows across the requested rounds.
type PlayerSessionTimingShadow struct {
	ParticipantID        string         `json:"participant_id"`
	ParticipantName      string         `json:"participant_name"`
	Fingerprint          string         `json:"fingerprint"`
	Rounds               int            `json:"rounds"`
	TimePlayedSeconds    int            `json:"time_played_seconds"`
	OldDeadSeconds       int            `json:"old_dead_seconds"`
	NewDeadSeconds       int            `json:"new_dead_seconds"`
	OldDeniedPlaytime    int            `json:"old_denied_playtime"`
	NewDeniedPlaytime    int            `json:"new_denied_playtime"`
	DeadDiffSeconds      int            `json:"dead_diff_seconds"`
	DeniedDiffSeconds    int            `json:"denied_diff_seconds"`
	TelemetryRows        int            `json:"telemetry_rows"`
	RoundsWithTelemetry  int            `json:"rounds_with_telemetry"`
	CoveragePercent      float64        `json:"coverage_percent"`
	FallbackReasonCounts map[string]int `json:"fallback_reason_counts"`
}

// SessionTimingShadowResult is the complete output of one comparison.
// Results handed out by Engine.Compare are shared and must not be mutated.
type SessionTimingShadowResult struct {
	RoundIDs               []int64                        `json:"round_ids"`
	RunID                  string                         `json:"run_id"`
	GeneratedAt            time.Time                      `json:"generated_at"`
	Rows                   []PlayerRoundTimingShadow      `json:"rows"`
	Summaries              []PlayerSessionTimingShadow    `json:"summaries"`
	Diagnostics            []RoundTimingShadowDiagnostics `json:"diagnostics"`
	OverallCoveragePercent float64                        `json:"overall_coverage_percent"`
	TelemetryQueryFailed   bool                           `json:"telemetry_query_failed"`
	ArtifactPath           string                         `json:"artifact_path,omitempty"`
}

// RoundDiagnostics returns the diagnostics record for roundID.
func (r *SessionTimingShadowResult) RoundDiagnostics(roundID int64) (RoundTimingShadowDiagnostics, bool) {
	for _, d := range r.Diagnostics {
		if d.RoundID == roundID {
			return d, true
		}
	}
	return RoundTimingShadowDiagnostics{}, false
}
