package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/iamez/slomix-sub001/internal/testutil"
)

// fakeLoader serves in-memory rows filtered by the requested round ids.
type fakeLoader struct {
	mu sync.Mutex

	meta      map[int64]RoundMeta
	legacy    []LegacyTiming
	telemetry []TelemetryTiming

	metaErr      error
	legacyErr    error
	telemetryErr error

	metaCalls      int
	legacyCalls    int
	telemetryCalls int

	// beforeTelemetry runs at the start of TelemetryTimings, outside the lock.
	beforeTelemetry func(ctx context.Context)
}

func (f *fakeLoader) RoundMeta(_ context.Context, ids []int64) (map[int64]RoundMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	out := make(map[int64]RoundMeta)
	for _, id := range ids {
		if m, ok := f.meta[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (f *fakeLoader) LegacyTimings(_ context.Context, ids []int64) ([]LegacyTiming, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.legacyCalls++
	if f.legacyErr != nil {
		return nil, f.legacyErr
	}
	out := []LegacyTiming{}
	for _, l := range f.legacy {
		if slices.Contains(ids, l.RoundID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLoader) TelemetryTimings(ctx context.Context, ids []int64) ([]TelemetryTiming, error) {
	if f.beforeTelemetry != nil {
		f.beforeTelemetry(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.telemetryCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.telemetryErr != nil {
		return nil, f.telemetryErr
	}
	out := []TelemetryTiming{}
	for _, t := range f.telemetry {
		if slices.Contains(ids, t.RoundID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLoader) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metaCalls + f.legacyCalls + f.telemetryCalls
}

// failingSink always fails to write.
type failingSink struct{}

func (failingSink) WriteArtifact(context.Context, *SessionTimingShadowResult) (string, error) {
	return "", errors.New("disk full")
}

// Participant GUIDs used across tests. The first 8 characters are the fingerprint.
const (
	guidAlpha   = "A1B2C3D4E5F60718293A4B5C6D7E8F90"
	guidBravo   = "B2C3D4E5F60718293A4B5C6D7E8F90A1"
	guidCharlie = "C3D4E5F60718293A4B5C6D7E8F90A1B2"
	guidDelta   = "D4E5F60718293A4B5C6D7E8F90A1B2C3"
)

func intPtr(v int) *int { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scenarioDLoader builds two rounds: round 101 with both participants
// matched, round 102 with one of two matched.
func scenarioDLoader() *fakeLoader {
	return &fakeLoader{
		meta: map[int64]RoundMeta{
			101: {RoundID: 101, MapName: "supply", RoundNumber: 1, DurationSeconds: intPtr(600)},
			102: {RoundID: 102, MapName: "supply", RoundNumber: 2, DurationSeconds: intPtr(480)},
		},
		legacy: []LegacyTiming{
			{RoundID: 101, ParticipantID: guidAlpha, ParticipantName: "alpha", TimePlayedSeconds: 600, TimeDeadSeconds: 120, DeniedPlaytime: 48},
			{RoundID: 101, ParticipantID: guidBravo, ParticipantName: "bravo", TimePlayedSeconds: 540, TimeDeadSeconds: 60, DeniedPlaytime: 30},
			{RoundID: 102, ParticipantID: guidAlpha, ParticipantName: "alpha", TimePlayedSeconds: 480, TimeDeadSeconds: 90, DeniedPlaytime: 39},
			{RoundID: 102, ParticipantID: guidCharlie, ParticipantName: "charlie", TimePlayedSeconds: 400, TimeDeadSeconds: 100, DeniedPlaytime: 20},
		},
		telemetry: []TelemetryTiming{
			{RoundID: 101, Fingerprint: "a1b2c3d4", DeadSeconds: 100},
			{RoundID: 101, Fingerprint: "a1b2c3d4", DeadSeconds: 50},
			{RoundID: 101, Fingerprint: "b2c3d4e5", DeadSeconds: 60},
			{RoundID: 102, Fingerprint: "a1b2c3d4", DeadSeconds: 90},
		},
	}
}

func newTestEngine(t *testing.T, loader Loader, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithClock(testutil.NewFixedClock(testutil.Epoch)),
		WithRunIDGenerator(NewFixedGenerator("run-test")),
		WithLogger(discardLogger()),
	}
	return New(loader, append(base, opts...)...)
}
