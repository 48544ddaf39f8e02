package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader reads the three inputs of a comparison. All methods receive the
// normalized round-id set; timeouts and cancellation belong to ctx.
type Loader interface {
	// RoundMeta returns metadata keyed by round id. Unknown rounds are absent.
	RoundMeta(ctx context.Context, roundIDs []int64) (map[int64]RoundMeta, error)

	// LegacyTimings returns one aggregate per (round, participant).
	LegacyTimings(ctx context.Context, roundIDs []int64) ([]LegacyTiming, error)

	// TelemetryTimings returns raw telemetry rows with lowercase fingerprints.
	TelemetryTimings(ctx context.Context, roundIDs []int64) ([]TelemetryTiming, error)
}

// Engine reconciles legacy timings against telemetry and memoizes results
// per normalized round-id set.
//
// Thread-safety: Compare is safe for concurrent use. Concurrent misses for
// the same set share one build; forced refreshes always build their own.
type Engine struct {
	loader    Loader
	artifacts ArtifactSink
	clock     Clock
	runIDs    RunIDGenerator
	logger    *slog.Logger
	metrics   *Metrics

	mu    sync.Mutex
	cache map[string]*SessionTimingShadowResult
	group singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithArtifactSink enables debug artifacts. A nil sink disables them.
func WithArtifactSink(sink ArtifactSink) Option {
	return func(e *Engine) { e.artifacts = sink }
}

// WithClock overrides the wall clock used for GeneratedAt.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRunIDGenerator overrides the run id generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = gen }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine reading from loader. Artifacts are disabled unless
// WithArtifactSink is given.
func New(loader Loader, opts ...Option) *Engine {
	e := &Engine{
		loader: loader,
		clock:  SystemClock{},
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
		cache:  make(map[string]*SessionTimingShadowResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare reconciles the given rounds.
//
// Ids are normalized first (non-positive dropped, de-duplicated, sorted), so
// the input order never matters. An empty set returns an empty result without
// touching the loader. Without forceRefresh a cached result for the same set
// is returned as the identical pointer; forceRefresh always rebuilds and
// replaces the cache entry.
//
// Only round metadata and legacy query failures are returned as errors,
// plus ctx.Err() when ctx ends first.
func (e *Engine) Compare(ctx context.Context, roundIDs []int64, forceRefresh bool) (*SessionTimingShadowResult, error) {
	ids := NormalizeRoundIDs(roundIDs)
	if len(ids) == 0 {
		e.metrics.compare(outcomeEmpty)
		return e.emptyResult(), nil
	}

	key := cacheKey(ids)
	if forceRefresh {
		return e.buildAndStore(ctx, ids, key)
	}

	if cached, ok := e.lookup(key); ok {
		e.metrics.compare(outcomeCacheHit)
		e.logger.Debug("timing shadow cache hit", "round_ids", key, "run_id", cached.RunID)
		return cached, nil
	}

	// The shared build is detached from any one caller's cancellation;
	// each caller still stops waiting when its own ctx is done.
	ch := e.group.DoChan(key, func() (any, error) {
		if cached, ok := e.lookup(key); ok {
			return cached, nil
		}
		return e.buildAndStore(context.WithoutCancel(ctx), ids, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SessionTimingShadowResult), nil
	}
}

// Invalidate drops the cached result for the given set, if any.
func (e *Engine) Invalidate(roundIDs []int64) {
	key := cacheKey(NormalizeRoundIDs(roundIDs))
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, key)
}

// CacheLen returns the number of cached results.
func (e *Engine) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func (e *Engine) lookup(key string) (*SessionTimingShadowResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.cache[key]
	return r, ok
}

func (e *Engine) buildAndStore(ctx context.Context, ids []int64, key string) (*SessionTimingShadowResult, error) {
	result, err := e.build(ctx, ids)
	if err != nil {
		e.metrics.compare(outcomeError)
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = result
	e.mu.Unlock()

	e.metrics.compare(outcomeBuilt)
	return result, nil
}

// build runs load -> compare -> aggregate -> write for one normalized set.
func (e *Engine) build(ctx context.Context, ids []int64) (*SessionTimingShadowResult, error) {
	started := e.clock.Now()
	runID := e.runIDs.Generate()
	logger := e.logger.With("run_id", runID, "round_ids", cacheKey(ids))

	meta, err := e.loader.RoundMeta(ctx, ids)
	if err != nil {
		return nil, newQueryError(ErrCodeRoundQueryFailed, "round metadata", ids, err)
	}

	legacy, err := e.loader.LegacyTimings(ctx, ids)
	if err != nil {
		return nil, newQueryError(ErrCodeLegacyQueryFailed, "legacy timing", ids, err)
	}

	telemetry, err := e.loader.TelemetryTimings(ctx, ids)
	if err != nil && ctx.Err() != nil {
		// A cancelled caller is not a telemetry outage; nothing is cached.
		return nil, ctx.Err()
	}
	telemetryFailed := err != nil
	if telemetryFailed {
		logger.Warn("telemetry query failed, using legacy timings only", "error", err)
		e.metrics.telemetryFailed()
		telemetry = nil
	}

	c := compareRounds(meta, legacy, telemetry, telemetryFailed)
	diagnostics := buildDiagnostics(ids, meta, c)

	result := &SessionTimingShadowResult{
		RoundIDs:               slices.Clone(ids),
		RunID:                  runID,
		GeneratedAt:            started,
		Rows:                   c.Rows,
		Summaries:              buildSummaries(c.Rows),
		Diagnostics:            diagnostics,
		OverallCoveragePercent: overallCoverage(diagnostics),
		TelemetryQueryFailed:   telemetryFailed,
	}

	if e.artifacts != nil && len(result.Rows) > 0 {
		path, err := e.artifacts.WriteArtifact(ctx, result)
		if err != nil {
			logger.Error("timing shadow artifact write failed", "error", err)
			e.metrics.artifactFailed()
		} else {
			result.ArtifactPath = path
			logger.Info("timing shadow artifact written", "path", path)
		}
	}

	e.metrics.built(result, e.clock.Now().Sub(started))
	logger.Info("timing shadow compared",
		"rows", len(result.Rows),
		"participants", len(result.Summaries),
		"coverage_percent", result.OverallCoveragePercent,
		"telemetry_failed", telemetryFailed,
	)
	return result, nil
}

func (e *Engine) emptyResult() *SessionTimingShadowResult {
	return &SessionTimingShadowResult{
		RoundIDs:    []int64{},
		GeneratedAt: e.clock.Now(),
		Rows:        []PlayerRoundTimingShadow{},
		Summaries:   []PlayerSessionTimingShadow{},
		Diagnostics: []RoundTimingShadowDiagnostics{},
	}
}
