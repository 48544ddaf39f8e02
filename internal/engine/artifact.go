package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ArtifactSink persists the rows of a non-empty comparison for offline auditing.
// Implementations return the location they wrote to.
type ArtifactSink interface {
	WriteArtifact(ctx context.Context, result *SessionTimingShadowResult) (string, error)
}

// ArtifactColumns is the header of the CSV debug artifact.
var ArtifactColumns = []string{
	"round_id",
	"map_name",
	"round_number",
	"participant_id",
	"participant_name",
	"fingerprint",
	"old_time_played_seconds",
	"old_dead_seconds",
	"new_dead_seconds",
	"old_denied_playtime",
	"new_denied_playtime",
	"dead_diff_seconds",
	"denied_diff_seconds",
	"telemetry_row_count",
	"telemetry_dead_raw",
	"telemetry_cap_seconds",
	"round_duration_seconds",
	"coverage_percent",
	"fallback_reason",
}

const (
	artifactPrefix      = "timing_shadow"
	artifactTimeLayout  = "20060102T150405.000000Z"
	maxInlineRoundIDs   = 6
	maxArtifactAttempts = 100
)

// CSVArtifactWriter writes one CSV file per comparison into Dir.
// Files are created exclusively; an existing name gets a numeric suffix.
type CSVArtifactWriter struct {
	Dir string
}

// NewCSVArtifactWriter creates a writer rooted at dir.
func NewCSVArtifactWriter(dir string) *CSVArtifactWriter {
	return &CSVArtifactWriter{Dir: dir}
}

// WriteArtifact writes every row of result, with its round's coverage
// denormalized onto the row.
func (w *CSVArtifactWriter) WriteArtifact(_ context.Context, result *SessionTimingShadowResult) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	f, path, err := w.create(ArtifactFileName(result.RoundIDs, result.GeneratedAt))
	if err != nil {
		return "", err
	}

	if err := writeArtifactRows(f, result); err != nil {
		f.Close()
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close artifact %s: %w", path, err)
	}
	return path, nil
}

// create opens name exclusively, retrying with _1, _2, ... suffixes.
func (w *CSVArtifactWriter) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for attempt := 0; attempt < maxArtifactAttempts; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, attempt, ext)
		}
		path := filepath.Join(w.Dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create artifact: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create artifact: %d names taken for %s", maxArtifactAttempts, name)
}

// ArtifactFileName encodes the round-id set and a UTC timestamp.
// Up to six ids are listed; larger sets become first-last_nCOUNT.
func ArtifactFileName(roundIDs []int64, at time.Time) string {
	var ids string
	switch {
	case len(roundIDs) == 0:
		ids = "none"
	case len(roundIDs) <= maxInlineRoundIDs:
		ids = strings.ReplaceAll(cacheKey(roundIDs), ",", "-")
	default:
		ids = fmt.Sprintf("%d-%d_n%d", roundIDs[0], roundIDs[len(roundIDs)-1], len(roundIDs))
	}
	return fmt.Sprintf("%s_%s_%s.csv", artifactPrefix, ids, at.UTC().Format(artifactTimeLayout))
}

func writeArtifactRows(w io.Writer, result *SessionTimingShadowResult) error {
	coverage := make(map[int64]float64, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		coverage[d.RoundID] = d.CoveragePercent
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ArtifactColumns); err != nil {
		return err
	}
	for _, r := range result.Rows {
		record := []string{
			strconv.FormatInt(r.RoundID, 10),
			r.MapName,
			strconv.Itoa(r.RoundNumber),
			r.ParticipantID,
			r.ParticipantName,
			r.Fingerprint,
			strconv.Itoa(r.OldTimePlayedSeconds),
			strconv.Itoa(r.OldDeadSeconds),
			strconv.Itoa(r.NewDeadSeconds),
			strconv.Itoa(r.OldDeniedPlaytime),
			strconv.Itoa(r.NewDeniedPlaytime),
			strconv.Itoa(r.DeadDiffSeconds),
			strconv.Itoa(r.DeniedDiffSeconds),
			strconv.Itoa(r.TelemetryRowCount),
			optionalInt(r.TelemetryDeadRaw),
			strconv.Itoa(r.TelemetryCapSeconds),
			optionalInt(r.RoundDurationSeconds),
			strconv.FormatFloat(coverage[r.RoundID], 'f', 2, 64),
			r.FallbackReason,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
