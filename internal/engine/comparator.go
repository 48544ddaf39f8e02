package engine

import (
	"slices"
)

// roundKey identifies telemetry for one fingerprint in one round.
type roundKey struct {
	RoundID     int64
	Fingerprint string
}

// telemetryAccumulator sums the telemetry rows sharing a roundKey.
type telemetryAccumulator struct {
	DeadSeconds int
	Rows        int
}

// roundAccumulator collects per-round diagnostics while rows are compared.
type roundAccumulator struct {
	Participants              int
	ParticipantsWithTelemetry int
	TelemetryRowsTotal        int
	TelemetryRowsMatched      int
	ReasonCounts              map[string]int
	Collisions                []string
}

func newRoundAccumulator() *roundAccumulator {
	return &roundAccumulator{ReasonCounts: make(map[string]int)}
}

// comparison is the joined output of compareRounds.
type comparison struct {
	Rows   []PlayerRoundTimingShadow
	Rounds map[int64]*roundAccumulator
}

// compareRounds joins legacy rows with telemetry by (round, fingerprint) and
// reconciles each pair. Rows keep the legacy input order.
//
// When telemetryFailed is set the telemetry slice is ignored and every row is
// tagged ReasonQueryFailed.
func compareRounds(meta map[int64]RoundMeta, legacy []LegacyTiming, telemetry []TelemetryTiming, telemetryFailed bool) comparison {
	rounds := make(map[int64]*roundAccumulator)
	round := func(id int64) *roundAccumulator {
		acc, ok := rounds[id]
		if !ok {
			acc = newRoundAccumulator()
			rounds[id] = acc
		}
		return acc
	}

	index := make(map[roundKey]*telemetryAccumulator)
	if !telemetryFailed {
		for _, t := range telemetry {
			key := roundKey{RoundID: t.RoundID, Fingerprint: Fingerprint(t.Fingerprint)}
			acc, ok := index[key]
			if !ok {
				acc = &telemetryAccumulator{}
				index[key] = acc
			}
			acc.DeadSeconds += t.DeadSeconds
			acc.Rows++
			round(t.RoundID).TelemetryRowsTotal++
		}
	}

	// Distinct participant ids per fingerprint, to catch prefix collisions.
	owners := make(map[roundKey]map[string]struct{})
	for _, l := range legacy {
		key := roundKey{RoundID: l.RoundID, Fingerprint: Fingerprint(l.ParticipantID)}
		if owners[key] == nil {
			owners[key] = make(map[string]struct{})
		}
		owners[key][l.ParticipantID] = struct{}{}
	}
	for key, ids := range owners {
		if len(ids) > 1 {
			acc := round(key.RoundID)
			acc.Collisions = append(acc.Collisions, key.Fingerprint)
		}
	}
	for _, acc := range rounds {
		slices.Sort(acc.Collisions)
	}

	rows := make([]PlayerRoundTimingShadow, 0, len(legacy))
	matched := make(map[roundKey]bool)

	for _, l := range legacy {
		key := roundKey{RoundID: l.RoundID, Fingerprint: Fingerprint(l.ParticipantID)}
		acc := round(l.RoundID)
		m := meta[l.RoundID]

		tel := index[key]
		collision := len(owners[key]) > 1

		var missingReason string
		switch {
		case telemetryFailed:
			missingReason = ReasonQueryFailed
		case acc.TelemetryRowsTotal == 0:
			missingReason = ReasonMissingForRound
		case collision && tel != nil:
			missingReason = ReasonGUIDPrefixCollision
		default:
			missingReason = ReasonMissingForGUIDPrefix
		}

		var telemetryDead *int
		telemetryRows := 0
		if tel != nil && !collision {
			dead := tel.DeadSeconds
			telemetryDead = &dead
			telemetryRows = tel.Rows
		}

		computed := ComputeShadowTiming(
			l.TimePlayedSeconds,
			l.TimeDeadSeconds,
			l.DeniedPlaytime,
			telemetryDead,
			m.DurationSeconds,
			missingReason,
		)

		rows = append(rows, PlayerRoundTimingShadow{
			RoundID:              l.RoundID,
			MapName:              m.MapName,
			RoundNumber:          m.RoundNumber,
			ParticipantID:        l.ParticipantID,
			ParticipantName:      l.ParticipantName,
			Fingerprint:          key.Fingerprint,
			OldTimePlayedSeconds: l.TimePlayedSeconds,
			OldDeadSeconds:       l.TimeDeadSeconds,
			OldDeniedPlaytime:    l.DeniedPlaytime,
			NewDeadSeconds:       computed.NewDeadSeconds,
			NewDeniedPlaytime:    computed.NewDeniedPlaytime,
			DeadDiffSeconds:      computed.NewDeadSeconds - l.TimeDeadSeconds,
			DeniedDiffSeconds:    computed.NewDeniedPlaytime - l.DeniedPlaytime,
			TelemetryRowCount:    telemetryRows,
			TelemetryDeadRaw:     computed.TelemetryDeadRaw,
			TelemetryCapSeconds:  computed.CapLimitSeconds,
			RoundDurationSeconds: m.DurationSeconds,
			FallbackReason:       computed.FallbackReason,
		})

		acc.Participants++
		acc.ReasonCounts[computed.FallbackReason]++
		if telemetryRows > 0 {
			acc.ParticipantsWithTelemetry++
			if !matched[key] {
				matched[key] = true
				acc.TelemetryRowsMatched += telemetryRows
			}
		}
	}

	return comparison{Rows: rows, Rounds: rounds}
}
