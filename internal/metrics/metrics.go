package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeGated    = "gated"
	OutcomeRanked   = "ranked"
	OutcomeUnranked = "unranked"
	OutcomeError    = "error"
)

// Inference stages.
const (
	StagePrimary   = "primary"
	StageSecondary = "secondary"
)

var (
	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_submissions_total",
			Help: "Total number of drawing submissions by outcome",
		},
		[]string{"outcome"},
	)

	primaryFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_primary_fallbacks_total",
			Help: "Primary scores replaced by the stub, by reason",
		},
		[]string{"reason"},
	)

	secondaryTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_secondary_transitions_total",
			Help: "Secondary review state changes made by the worker",
		},
		[]string{"status"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"action"},
	)

	inferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_inference_latency_seconds",
			Help:    "Latency of model calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"stage"},
	)
)

func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

func RecordPrimaryFallback(reason string) {
	primaryFallbacks.WithLabelValues(reason).Inc()
}

func RecordSecondaryTransition(status string) {
	secondaryTransitions.WithLabelValues(status).Inc()
}

func RecordRateLimited(action string) {
	rateLimited.WithLabelValues(action).Inc()
}

func ObserveInference(stage string, latency time.Duration) {
	inferenceLatency.WithLabelValues(stage).Observe(latency.Seconds())
}
