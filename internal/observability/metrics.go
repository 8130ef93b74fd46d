// File: internal/observability/metrics.go
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitevoice_turns_total",
			Help: "Utterances handled by the orchestrator, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitevoice_actions_total",
			Help: "Resolved actions executed against the page, labeled by action type and status.",
		},
		[]string{"action", "status"},
	)
	InferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitevoice_inference_duration_seconds",
			Help:    "Latency of model completions in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider", "outcome"},
	)
	ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitevoice_extraction_duration_seconds",
			Help:    "Time spent building a page content snapshot, labeled by page type.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"page_type"},
	)
	ExtractionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitevoice_extraction_failures_total",
			Help: "Extractions that fell back to minimal content.",
		},
	)
	TranscriptionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitevoice_transcription_failures_total",
			Help: "Recording windows that produced no usable utterance, labeled by reason.",
		},
		[]string{"reason"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitevoice_turn_queue_depth",
			Help: "Utterances waiting for the turn consumer.",
		},
	)
)

func init() {
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(InferenceDuration)
	prometheus.MustRegister(ExtractionDuration)
	prometheus.MustRegister(ExtractionFailures)
	prometheus.MustRegister(TranscriptionFailures)
	prometheus.MustRegister(QueueDepth)
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
