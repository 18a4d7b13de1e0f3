package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the person module.
type Metrics struct {
	// Recomputation outcomes by result
	Recomputations *prometheus.CounterVec

	// Pipeline stage latencies
	StageLatency *prometheus.HistogramVec

	// JSON extraction successes by ladder tier, plus outright failures
	ExtractionTier *prometheus.CounterVec

	// History size at recomputation time
	HistoryDepth prometheus.Histogram
}

// New creates a Metrics instance with all person module metrics registered.
func New() *Metrics {
	return &Metrics{
		Recomputations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personad_recomputations_total",
			Help: "Total persona recomputations by result",
		}, []string{"result"}), // result: "ok", "generation_error", "parse_error", "conflict"

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "personad_pipeline_stage_duration_seconds",
			Help:    "Duration of LLM pipeline stages",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}), // stage: "normalize", "generate"

		ExtractionTier: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personad_extraction_tier_total",
			Help: "JSON extraction attempts by winning ladder tier",
		}, []string{"tier"}), // tier: "direct", "fenced", "bracket", "repair", "failed"

		HistoryDepth: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "personad_recomputation_history_depth",
			Help:    "Number of history entries fed into a recomputation",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// IncrementRecomputation records a recomputation outcome.
func (m *Metrics) IncrementRecomputation(result string) {
	if m != nil {
		m.Recomputations.WithLabelValues(result).Inc()
	}
}

// ObserveStageLatency records the duration of one pipeline stage.
func (m *Metrics) ObserveStageLatency(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementExtractionTier records which ladder tier produced the profile.
func (m *Metrics) IncrementExtractionTier(tier string) {
	if m != nil {
		m.ExtractionTier.WithLabelValues(tier).Inc()
	}
}

// ObserveHistoryDepth records how many entries a recomputation consumed.
func (m *Metrics) ObserveHistoryDepth(n int) {
	if m != nil {
		m.HistoryDepth.Observe(float64(n))
	}
}
