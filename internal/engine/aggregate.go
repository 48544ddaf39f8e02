package engine

import (
	"cmp"
	"math"
	"slices"
)

// buildDiagnostics returns one record per requested round, in request order.
// Rounds without rows still get a record with zero coverage.
func buildDiagnostics(roundIDs []int64, meta map[int64]RoundMeta, c comparison) []RoundTimingShadowDiagnostics {
	out := make([]RoundTimingShadowDiagnostics, 0, len(roundIDs))
	for _, id := range roundIDs {
		m := meta[id]
		d := RoundTimingShadowDiagnostics{
			RoundID:              id,
			MapName:              m.MapName,
			RoundNumber:          m.RoundNumber,
			FallbackReasonCounts: map[string]int{},
		}
		if acc, ok := c.Rounds[id]; ok {
			d.ParticipantCount = acc.Participants
			d.ParticipantsWithTelemetry = acc.ParticipantsWithTelemetry
			d.TelemetryRowsTotal = acc.TelemetryRowsTotal
			d.TelemetryRowsMatched = acc.TelemetryRowsMatched
			d.FingerprintCollisions = slices.Clone(acc.Collisions)
			for reason, n := range acc.ReasonCounts {
				d.FallbackReasonCounts[reason] = n
			}
		}
		d.CoveragePercent = coveragePercent(d.ParticipantsWithTelemetry, d.ParticipantCount)
		out = append(out, d)
	}
	return out
}

// buildSummaries groups rows by participant id and sorts the summaries by
// |dead_diff_seconds| descending, ties by participant id ascending.
func buildSummaries(rows []PlayerRoundTimingShadow) []PlayerSessionTimingShadow {
	byID := make(map[string]*PlayerSessionTimingShadow)
	var order []string

	for _, r := range rows {
		s, ok := byID[r.ParticipantID]
		if !ok {
			s = &PlayerSessionTimingShadow{
				ParticipantID:        r.ParticipantID,
				ParticipantName:      r.ParticipantName,
				Fingerprint:          r.Fingerprint,
				FallbackReasonCounts: map[string]int{},
			}
			byID[r.ParticipantID] = s
			order = append(order, r.ParticipantID)
		}
		if r.ParticipantName != "" {
			s.ParticipantName = r.ParticipantName
		}

		s.Rounds++
		s.TimePlayedSeconds += r.OldTimePlayedSeconds
		s.OldDeadSeconds += r.OldDeadSeconds
		s.NewDeadSeconds += r.NewDeadSeconds
		s.OldDeniedPlaytime += r.OldDeniedPlaytime
		s.NewDeniedPlaytime += r.NewDeniedPlaytime
		s.DeadDiffSeconds += r.DeadDiffSeconds
		s.DeniedDiffSeconds += r.DeniedDiffSeconds
		s.TelemetryRows += r.TelemetryRowCount
		if r.TelemetryRowCount > 0 {
			s.RoundsWithTelemetry++
		}
		s.FallbackReasonCounts[r.FallbackReason]++
	}

	out := make([]PlayerSessionTimingShadow, 0, len(order))
	for _, id := range order {
		s := byID[id]
		s.CoveragePercent = coveragePercent(s.RoundsWithTelemetry, s.Rounds)
		out = append(out, *s)
	}

	sortSummaries(out, MetricDeadDiff, true)
	return out
}

// overallCoverage is the participant-weighted coverage across all rounds.
func overallCoverage(diagnostics []RoundTimingShadowDiagnostics) float64 {
	var with, total int
	for _, d := range diagnostics {
		with += d.ParticipantsWithTelemetry
		total += d.ParticipantCount
	}
	return coveragePercent(with, total)
}

// coveragePercent returns part/whole*100 rounded to two decimals, 0 when whole is 0.
func coveragePercent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}

// sortSummaries orders summaries by metric (absolute or signed) descending,
// ties by participant id ascending.
func sortSummaries(summaries []PlayerSessionTimingShadow, metric DiffMetric, absolute bool) {
	slices.SortStableFunc(summaries, func(a, b PlayerSessionTimingShadow) int {
		va, vb := metric.value(a), metric.value(b)
		if absolute {
			va, vb = abs(va), abs(vb)
		}
		if c := cmp.Compare(vb, va); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
