package engine

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Compare outcomes recorded by Metrics.
const (
	outcomeBuilt    = "built"
	outcomeCacheHit = "cache_hit"
	outcomeEmpty    = "empty"
	outcomeError    = "error"
)

// Metrics holds the engine's Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	compares          *prometheus.CounterVec
	fallbackReasons   *prometheus.CounterVec
	telemetryFailures prometheus.Counter
	artifactFailures  prometheus.Counter
	buildDuration     prometheus.Histogram
	rowsCompared      prometheus.Counter
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		compares: f.NewCounterVec(prometheus.CounterOpts{
			Name: "timing_shadow_compares_total",
			Help: "Compare calls by outcome",
		}, []string{"outcome"}),
		fallbackReasons: f.NewCounterVec(prometheus.CounterOpts{
			Name: "timing_shadow_fallback_reasons_total",
			Help: "Reconciled rows by fallback reason tag",
		}, []string{"reason"}),
		telemetryFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "timing_shadow_telemetry_query_failures_total",
			Help: "Telemetry queries that failed and degraded a run",
		}),
		artifactFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "timing_shadow_artifact_write_failures_total",
			Help: "Debug artifact writes that failed",
		}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "timing_shadow_build_duration_seconds",
			Help:    "Load, compare and aggregate duration for uncached results",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		rowsCompared: f.NewCounter(prometheus.CounterOpts{
			Name: "timing_shadow_rows_compared_total",
			Help: "Round-participant rows reconciled",
		}),
	}
}

func (m *Metrics) compare(outcome string) {
	if m == nil {
		return
	}
	m.compares.WithLabelValues(outcome).Inc()
}

func (m *Metrics) telemetryFailed() {
	if m == nil {
		return
	}
	m.telemetryFailures.Inc()
}

func (m *Metrics) artifactFailed() {
	if m == nil {
		return
	}
	m.artifactFailures.Inc()
}

func (m *Metrics) built(result *SessionTimingShadowResult, took time.Duration) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(took.Seconds())
	m.rowsCompared.Add(float64(len(result.Rows)))
	for _, row := range result.Rows {
		for _, tag := range strings.Split(row.FallbackReason, ReasonSeparator) {
			m.fallbackReasons.WithLabelValues(tag).Inc()
		}
	}
}
