// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CompletionDuration tracks LLM completion call duration.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion call duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// CompletionTokensTotal tracks total LLM tokens processed.
	CompletionTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// IntentsTotal tracks intents detected in assistant text, by kind and
	// extraction outcome (extracted or malformed).
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intents_total",
			Help: "Intents detected in assistant responses",
		},
		[]string{"kind", "outcome"},
	)

	// DispatchesTotal tracks side effects executed for extracted intents.
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_dispatches_total",
			Help: "Side effects executed for extracted intents",
		},
		[]string{"kind", "status"},
	)

	// TurnsTotal tracks conversation turns appended to history.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Conversation turns appended to history",
		},
		[]string{"role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for an LLM completion call.
func RecordCompletion(model, status string, duration float64, tokensIn, tokensOut int) {
	CompletionDuration.WithLabelValues(model, status).Observe(duration)
	CompletionTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	CompletionTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
