package engine

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamez/slomix-sub001/internal/testutil"
)

func TestArtifactFileName(t *testing.T) {
	at := time.Date(2026, time.January, 10, 21, 30, 5, 123456000, time.UTC)

	assert.Equal(t, "timing_shadow_101-102_20260110T213005.123456Z.csv", ArtifactFileName([]int64{101, 102}, at))
	assert.Equal(t, "timing_shadow_none_20260110T213005.123456Z.csv", ArtifactFileName(nil, at))
	assert.Equal(t,
		"timing_shadow_1-7_n7_20260110T213005.123456Z.csv",
		ArtifactFileName([]int64{1, 2, 3, 4, 5, 6, 7}, at),
	)
}

func TestArtifactFileName_ConvertsToUTC(t *testing.T) {
	at := time.Date(2026, time.January, 10, 22, 30, 5, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "timing_shadow_5_20260110T213005.000000Z.csv", ArtifactFileName([]int64{5}, at))
}

func TestCSVArtifactWriter_WritesRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "debug")
	e := newTestEngine(t, scenarioDLoader())
	result, err := e.Compare(context.Background(), []int64{101, 102}, false)
	require.NoError(t, err)

	path, err := NewCSVArtifactWriter(dir).WriteArtifact(context.Background(), result)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ArtifactFileName([]int64{101, 102}, testutil.Epoch)), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, ArtifactColumns, records[0])

	first := records[1]
	assert.Equal(t, []string{
		"101", "supply", "1", guidAlpha, "alpha", "a1b2c3d4",
		"600", "120", "150", "48", "45", "30", "-3",
		"2", "150", "600", "600", "100.00", "none",
	}, first)

	missing := records[4]
	assert.Equal(t, guidCharlie, missing[3])
	assert.Equal(t, "", missing[14], "telemetry_dead_raw should be empty")
	assert.Equal(t, "50.00", missing[17])
	assert.Equal(t, ReasonMissingForGUIDPrefix, missing[18])
}

func TestCSVArtifactWriter_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVArtifactWriter(dir)
	result := &SessionTimingShadowResult{
		RoundIDs:    []int64{42},
		GeneratedAt: testutil.Epoch,
		Rows:        []PlayerRoundTimingShadow{{RoundID: 42, ParticipantID: guidAlpha, FallbackReason: ReasonNone}},
	}

	first, err := w.WriteArtifact(context.Background(), result)
	require.NoError(t, err)
	second, err := w.WriteArtifact(context.Background(), result)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "timing_shadow_42_20260110T213000.000000Z_1.csv", filepath.Base(second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCSVArtifactWriter_UnwritableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	w := NewCSVArtifactWriter(filepath.Join(blocker, "debug"))
	_, err := w.WriteArtifact(context.Background(), &SessionTimingShadowResult{RoundIDs: []int64{1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create artifact dir")
}
