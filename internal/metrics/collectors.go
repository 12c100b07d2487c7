package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skinlab",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Product search metrics.
var (
	ProductSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "product_search_total",
			Help:      "Product searches by the tier that produced the answer",
		},
		[]string{"tier"}, // "semantic" / "fallback" / "empty"
	)

	ProductSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skinlab",
			Name:      "product_search_duration_seconds",
			Help:      "End-to-end product search duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// LLM and auth metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "llm_requests_total",
			Help:      "Total number of model calls",
		},
		[]string{"model", "mode", "status"}, // mode: "generate" / "stream"
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skinlab",
			Name:      "llm_request_duration_seconds",
			Help:      "Model call duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"model", "mode"},
	)

	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "access_token_refresh_total",
			Help:      "Access token refreshes",
		},
		[]string{"result"},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skinlab",
			Name:      "analysis_total",
			Help:      "Analysis requests by outcome",
		},
		[]string{"outcome"}, // "success" / "invalid_request" / "not_found" / "invalid_output" / "error"
	)
)

var registerOnce sync.Once

// Register registers every skinlab collector with the default registry.
// Repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpRequestsInFlight,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			ProductSearchTotal,
			ProductSearchDuration,
			LLMRequestsTotal,
			LLMRequestDuration,
			TokenRefreshTotal,
			AnalysisTotal,
		)
	})
}
