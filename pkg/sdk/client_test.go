package skinlab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, msg string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	var env errorEnvelope
	env.Error.Message = msg
	env.Error.Status = status
	env.Error.Details = details
	_ = json.NewEncoder(w).Encode(env)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New(u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestGenerateAnalysis_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate-analysis" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k1" {
			t.Errorf("authorization: %q", got)
		}
		var body analysisRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.QuestionnaireID != testID || len(body.ImagePaths) != 2 {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"analysis":{"overallScore":71,"primaryState":"Good"},"routine":{"products":[{"product_id":4}]}}`))
	}, WithAPIKey("k1"))

	res, err := c.GenerateAnalysis(context.Background(), testID, []string{"a/front.jpg", "a/side.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Analysis.OverallScore != 71 || len(res.Routine.Products) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestGenerateAnalysis_LocalValidation(t *testing.T) {
	called := false
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) { called = true })

	_, err := c.GenerateAnalysis(context.Background(), "not-a-uuid", []string{"a.jpg"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if called {
		t.Error("request must not be sent for invalid input")
	}
}

func TestGenerateAnalysis_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"validation", http.StatusBadRequest, ErrValidation},
		{"not found", http.StatusNotFound, ErrQuestionnaireNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server", http.StatusInternalServerError, ErrServer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeEnvelope(w, tc.status, "failed", "detail one")
			})
			_, err := c.GenerateAnalysis(context.Background(), testID, []string{"a.jpg"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status || apiErr.Details[0] != "detail one" {
				t.Errorf("unexpected api error: %+v", apiErr)
			}
		})
	}
}

func TestSearchProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body searchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Query != "retinol serum" || body.MatchCount != 10 || body.MatchThreshold != 0 {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"query":"retinol serum","product_count":1,"products":[{"id":9,"title":"Night Serum","similarity":0.82}]}`))
	})

	resp, err := c.SearchProducts(context.Background(), "retinol serum", WithMatchCount(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ProductCount != 1 || resp.Products[0].ID != 9 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSearchProducts_EmptyQuery(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent")
	})
	if _, err := c.SearchProducts(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		healthy bool
	}{
		{"ok", http.StatusOK, `{"status":"ok","checks":{"database":"ok"}}`, true},
		{"degraded", http.StatusServiceUnavailable, `{"status":"degraded","checks":{"database":"ok","cache":"error"}}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			h, err := c.Health(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Healthy() != tc.healthy || h.Checks["database"] != "ok" {
				t.Errorf("unexpected status: %+v", h)
			}
		})
	}
}

func TestHealth_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.Health(context.Background()); !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&APIError{StatusCode: 400}, false},
		{&APIError{StatusCode: 404}, false},
		{&APIError{StatusCode: 502}, true},
		{errors.New("connection reset"), true},
	}
	for _, tc := range tests {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestPrometheusOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusNotFound, "Questionnaire not found")
	}, WithPrometheus(reg))

	_, _ = c.GenerateAnalysis(context.Background(), testID, []string{"a.jpg"})
	_, _ = c.GenerateAnalysis(context.Background(), "bad", []string{"a.jpg"})

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("generate_analysis", outcomeNotFound)); got != 1 {
		t.Errorf("not_found count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("generate_analysis", outcomeValidation)); got != 1 {
		t.Errorf("validation count = %v, want 1", got)
	}
}

func TestPrometheus_ReuseRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New("http://localhost", WithPrometheus(reg)); err != nil {
		t.Fatalf("first client: %v", err)
	}
	if _, err := New("http://localhost", WithPrometheus(reg)); err != nil {
		t.Fatalf("second client on same registerer: %v", err)
	}
}
