package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	ProductSearchTotal.WithLabelValues("fallback").Inc()
	if v := testutil.ToFloat64(ProductSearchTotal.WithLabelValues("fallback")); v < 1 {
		t.Errorf("expected product_search_total{tier=fallback} >= 1, got %f", v)
	}
}

func TestRegister_ExposesPipelineCollectors(t *testing.T) {
	Register()

	EmbeddingRequestsTotal.WithLabelValues("vertex", "text-embedding-005", "success").Inc()
	EmbeddingRequestDuration.WithLabelValues("vertex", "text-embedding-005").Observe(0.2)
	EmbeddingErrorsTotal.WithLabelValues("vertex", "text-embedding-005", "timeout").Inc()
	EmbeddingCacheTotal.WithLabelValues("hit").Inc()
	ProductSearchTotal.WithLabelValues("semantic").Inc()
	ProductSearchDuration.Observe(0.4)
	LLMRequestsTotal.WithLabelValues("gemini-2.5-pro", "stream", "success").Inc()
	LLMRequestDuration.WithLabelValues("gemini-2.5-pro", "stream").Observe(31)
	TokenRefreshTotal.WithLabelValues("success").Inc()
	AnalysisTotal.WithLabelValues("invalid_output").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	exposed := make(map[string]bool, len(families))
	for _, f := range families {
		exposed[f.GetName()] = true
	}

	for _, name := range []string{
		"skinlab_embedding_requests_total",
		"skinlab_embedding_request_duration_seconds",
		"skinlab_embedding_errors_total",
		"skinlab_embedding_cache_total",
		"skinlab_product_search_total",
		"skinlab_product_search_duration_seconds",
		"skinlab_llm_requests_total",
		"skinlab_llm_request_duration_seconds",
		"skinlab_access_token_refresh_total",
		"skinlab_analysis_total",
		"skinlab_http_requests_in_flight",
	} {
		if !exposed[name] {
			t.Errorf("%s not exposed by the default registry", name)
		}
	}

	if v := testutil.ToFloat64(LLMRequestsTotal.WithLabelValues("gemini-2.5-pro", "stream", "success")); v < 1 {
		t.Errorf("llm_requests_total{stream,success} = %f", v)
	}
	if n := testutil.CollectAndCount(EmbeddingRequestDuration); n < 1 {
		t.Errorf("expected embedding duration series, got %d", n)
	}
}
