package engine

import "slices"

// DiffMetric names a summary field usable for ranking.
type DiffMetric string

const (
	MetricDeadDiff   DiffMetric = "dead_diff_seconds"
	MetricDeniedDiff DiffMetric = "denied_diff_seconds"
)

// SupportedMetrics lists the metrics TopNDiffSummary accepts.
var SupportedMetrics = []DiffMetric{MetricDeadDiff, MetricDeniedDiff}

// ParseDiffMetric validates a metric name.
func ParseDiffMetric(name string) (DiffMetric, error) {
	m := DiffMetric(name)
	if !slices.Contains(SupportedMetrics, m) {
		return "", NewUnsupportedMetricError(name)
	}
	return m, nil
}

func (m DiffMetric) value(s PlayerSessionTimingShadow) int {
	if m == MetricDeniedDiff {
		return s.DeniedDiffSeconds
	}
	return s.DeadDiffSeconds
}

// PlayerSummary finds a summary by exact participant id, falling back to the
// first summary (in ranking order) whose fingerprint matches id's fingerprint.
func (r *SessionTimingShadowResult) PlayerSummary(id string) (PlayerSessionTimingShadow, bool) {
	i := r.summaryIndex(id)
	if i < 0 {
		return PlayerSessionTimingShadow{}, false
	}
	return r.Summaries[i], true
}

// PlayerRounds returns the rows of the participant PlayerSummary resolves to,
// in result order. A fingerprint match never pulls in rows of a second
// participant id that shares the prefix.
func (r *SessionTimingShadowResult) PlayerRounds(id string) []PlayerRoundTimingShadow {
	i := r.summaryIndex(id)
	if i < 0 {
		return []PlayerRoundTimingShadow{}
	}

	participant := r.Summaries[i].ParticipantID
	out := []PlayerRoundTimingShadow{}
	for _, row := range r.Rows {
		if row.ParticipantID == participant {
			out = append(out, row)
		}
	}
	return out
}

func (r *SessionTimingShadowResult) summaryIndex(id string) int {
	for i, s := range r.Summaries {
		if s.ParticipantID == id {
			return i
		}
	}

	fp := Fingerprint(id)
	if fp == "" {
		return -1
	}
	for i, s := range r.Summaries {
		if s.Fingerprint == fp {
			return i
		}
	}
	return -1
}

// TopNDiffSummary returns the n summaries with the largest metric value,
// by magnitude when absolute is set, ties by participant id. n <= 0 yields
// an empty slice. The result's own Summaries are left untouched.
func (r *SessionTimingShadowResult) TopNDiffSummary(n int, metric DiffMetric, absolute bool) ([]PlayerSessionTimingShadow, error) {
	if !slices.Contains(SupportedMetrics, metric) {
		return nil, NewUnsupportedMetricError(string(metric))
	}
	if n <= 0 {
		return []PlayerSessionTimingShadow{}, nil
	}

	ranked := slices.Clone(r.Summaries)
	sortSummaries(ranked, metric, absolute)
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []PlayerSessionTimingShadow{}
	}
	return ranked, nil
}
