package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioDResult(t *testing.T) *SessionTimingShadowResult {
	t.Helper()
	e := newTestEngine(t, scenarioDLoader())
	result, err := e.Compare(context.Background(), []int64{101, 102}, false)
	require.NoError(t, err)
	return result
}

func TestPlayerSummary_ExactID(t *testing.T) {
	result := scenarioDResult(t)

	s, ok := result.PlayerSummary(guidBravo)

	require.True(t, ok)
	assert.Equal(t, guidBravo, s.ParticipantID)
	assert.Equal(t, "bravo", s.ParticipantName)
}

func TestPlayerSummary_FingerprintFallback(t *testing.T) {
	result := scenarioDResult(t)

	s, ok := result.PlayerSummary("c3d4e5f6")
	require.True(t, ok)
	assert.Equal(t, guidCharlie, s.ParticipantID)

	// Full id with different suffix still resolves through the prefix.
	s, ok = result.PlayerSummary("C3D4E5F6FFFFFFFFFFFFFFFFFFFFFFFF")
	require.True(t, ok)
	assert.Equal(t, guidCharlie, s.ParticipantID)
}

func TestPlayerSummary_NotFound(t *testing.T) {
	result := scenarioDResult(t)

	_, ok := result.PlayerSummary("ffffffff")
	assert.False(t, ok)

	_, ok = result.PlayerSummary("")
	assert.False(t, ok)
}

func TestPlayerSummary_FirstFingerprintMatchInListOrder(t *testing.T) {
	result := &SessionTimingShadowResult{
		Summaries: []PlayerSessionTimingShadow{
			{ParticipantID: "DEADBEEF000000000000000000000002", Fingerprint: "deadbeef", DeadDiffSeconds: 50},
			{ParticipantID: "DEADBEEF000000000000000000000001", Fingerprint: "deadbeef", DeadDiffSeconds: 10},
		},
	}

	s, ok := result.PlayerSummary("deadbeef")

	require.True(t, ok)
	assert.Equal(t, "DEADBEEF000000000000000000000002", s.ParticipantID)
}

func TestPlayerRounds_PreservesOrder(t *testing.T) {
	result := scenarioDResult(t)

	rows := result.PlayerRounds(guidAlpha)

	require.Len(t, rows, 2)
	assert.Equal(t, int64(101), rows[0].RoundID)
	assert.Equal(t, int64(102), rows[1].RoundID)
}

func TestPlayerRounds_ByFingerprint(t *testing.T) {
	result := scenarioDResult(t)

	rows := result.PlayerRounds("A1B2C3D4")

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, guidAlpha, row.ParticipantID)
	}
}

func TestPlayerRounds_FingerprintDoesNotMergeParticipants(t *testing.T) {
	result := &SessionTimingShadowResult{
		Rows: []PlayerRoundTimingShadow{
			{RoundID: 1, ParticipantID: "DEADBEEF000000000000000000000001", Fingerprint: "deadbeef"},
			{RoundID: 1, ParticipantID: "DEADBEEF000000000000000000000002", Fingerprint: "deadbeef"},
		},
		Summaries: []PlayerSessionTimingShadow{
			{ParticipantID: "DEADBEEF000000000000000000000001", Fingerprint: "deadbeef"},
			{ParticipantID: "DEADBEEF000000000000000000000002", Fingerprint: "deadbeef"},
		},
	}

	rows := result.PlayerRounds("deadbeef")

	require.Len(t, rows, 1)
	assert.Equal(t, "DEADBEEF000000000000000000000001", rows[0].ParticipantID)
}

func TestPlayerRounds_NotFound(t *testing.T) {
	result := scenarioDResult(t)

	rows := result.PlayerRounds("nobody")

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func rankingResult() *SessionTimingShadowResult {
	return &SessionTimingShadowResult{
		Summaries: []PlayerSessionTimingShadow{
			{ParticipantID: "p1", DeadDiffSeconds: 5, DeniedDiffSeconds: -30},
			{ParticipantID: "p2", DeadDiffSeconds: -20, DeniedDiffSeconds: 10},
			{ParticipantID: "p3", DeadDiffSeconds: 20, DeniedDiffSeconds: 10},
			{ParticipantID: "p4", DeadDiffSeconds: 0, DeniedDiffSeconds: 0},
		},
	}
}

func ids(summaries []PlayerSessionTimingShadow) []string {
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.ParticipantID
	}
	return out
}

func TestTopNDiffSummary_Absolute(t *testing.T) {
	result := rankingResult()

	top, err := result.TopNDiffSummary(3, MetricDeadDiff, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p3", "p1"}, ids(top))
}

func TestTopNDiffSummary_Signed(t *testing.T) {
	result := rankingResult()

	top, err := result.TopNDiffSummary(4, MetricDeadDiff, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1", "p4", "p2"}, ids(top))
}

func TestTopNDiffSummary_DeniedMetric(t *testing.T) {
	result := rankingResult()

	top, err := result.TopNDiffSummary(2, MetricDeniedDiff, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(top))
}

func TestTopNDiffSummary_NLargerThanSet(t *testing.T) {
	result := rankingResult()

	top, err := result.TopNDiffSummary(50, MetricDeadDiff, true)

	require.NoError(t, err)
	assert.Len(t, top, 4)
}

func TestTopNDiffSummary_NonPositiveN(t *testing.T) {
	result := rankingResult()

	for _, n := range []int{0, -1} {
		top, err := result.TopNDiffSummary(n, MetricDeadDiff, true)
		require.NoError(t, err)
		assert.NotNil(t, top)
		assert.Empty(t, top)
	}
}

func TestTopNDiffSummary_UnsupportedMetric(t *testing.T) {
	result := rankingResult()

	_, err := result.TopNDiffSummary(3, DiffMetric("kills"), true)

	require.Error(t, err)
	assert.True(t, IsUnsupportedMetric(err))
	assert.Contains(t, err.Error(), "dead_diff_seconds")
	assert.Contains(t, err.Error(), "denied_diff_seconds")
}

func TestTopNDiffSummary_DoesNotReorderResult(t *testing.T) {
	result := rankingResult()

	_, err := result.TopNDiffSummary(4, MetricDeadDiff, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(result.Summaries))
}

func TestParseDiffMetric(t *testing.T) {
	m, err := ParseDiffMetric("denied_diff_seconds")
	require.NoError(t, err)
	assert.Equal(t, MetricDeniedDiff, m)

	_, err = ParseDiffMetric("dead")
	assert.True(t, IsUnsupportedMetric(err))
}
