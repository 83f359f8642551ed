package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and evaluation Prometheus metrics.
var (
	SearchChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rankeval",
			Name:      "search_chunks_total",
			Help:      "Total number of corpus chunks scored",
		},
	)

	SearchQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rankeval",
			Name:      "search_queries_total",
			Help:      "Total number of queries ranked",
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rankeval",
			Name:      "search_duration_seconds",
			Help:      "Full search call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		},
	)

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankeval",
			Name:      "evaluations_total",
			Help:      "Total number of metric evaluations",
		},
		[]string{"status"}, // "success" / "error"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchChunksTotal)
	prometheus.MustRegister(SearchQueriesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(EvaluationsTotal)
	searchMetricsRegistered = true
}
