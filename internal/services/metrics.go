package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline collectors. Label values are drawn from closed sets (outcomes,
// domain.Actions, results) so cardinality stays bounded.
var (
	classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_classifications_total",
			Help: "Classifier results by outcome (parsed, unparseable, invalid, error).",
		},
		[]string{"outcome"},
	)

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_dispatch_total",
			Help: "Dispatched requests by action and result (ok, incomplete, not_found, empty, error).",
		},
		[]string{"action", "result"},
	)

	llmLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_llm_request_duration_seconds",
			Help:    "Duration of model completion calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
	)
)

func init() {
	prometheus.MustRegister(classifications, dispatches, llmLatency)
}

// Dispatch result labels.
const (
	resultOK         = "ok"
	resultIncomplete = "incomplete"
	resultNotFound   = "not_found"
	resultEmpty      = "empty"
	resultError      = "error"
)
