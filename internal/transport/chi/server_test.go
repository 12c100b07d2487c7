package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/skinlab/internal/domain"
	domanalysis "github.com/kailas-cloud/skinlab/internal/domain/analysis"
	"github.com/kailas-cloud/skinlab/internal/domain/product"
	"github.com/kailas-cloud/skinlab/internal/domain/request"
	healthuc "github.com/kailas-cloud/skinlab/internal/usecase/health"
)

const validID = "0f8fad5b-d9cb-469f-a165-70867728950e"

type mockAnalysis struct {
	generateFn func(ctx context.Context, req request.Analysis) (domanalysis.Result, error)
}

func (m *mockAnalysis) Generate(ctx context.Context, req request.Analysis) (domanalysis.Result, error) {
	return m.generateFn(ctx, req)
}

type mockSearch struct {
	searchFn func(ctx context.Context, query string, threshold float64, count int) product.Response
}

func (m *mockSearch) Search(ctx context.Context, query string, threshold float64, count int) product.Response {
	return m.searchFn(ctx, query, threshold, count)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newTestRouter(a AnalysisGenerator, s ProductSearcher, h HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(CORSMiddleware)
	NewServer(a, s, h).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.skinlab.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return resp.Error
}

func TestGenerateAnalysis_Success(t *testing.T) {
	var gotID string
	var gotPaths []string
	a := &mockAnalysis{generateFn: func(_ context.Context, req request.Analysis) (domanalysis.Result, error) {
		gotID = req.QuestionnaireID()
		gotPaths = req.ImagePaths()
		return domanalysis.Result{Analysis: domanalysis.SkinAnalysis{OverallScore: 80}}, nil
	}}
	h := newTestRouter(a, nil, nil)

	body := fmt.Sprintf(`{"anonymous_questionnaire_id":%q,"image_paths":["u/1/front.jpg"]}`, validID)
	rr := do(t, h, http.MethodPost, "/generate-analysis", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if gotID != validID || len(gotPaths) != 1 {
		t.Errorf("unexpected request passed through: %q %v", gotID, gotPaths)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on success response")
	}
	var result domanalysis.Result
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Analysis.OverallScore != 80 {
		t.Errorf("overall score: got %d", result.Analysis.OverallScore)
	}
}

func TestGenerateAnalysis_ValidationErrors(t *testing.T) {
	called := false
	a := &mockAnalysis{generateFn: func(context.Context, request.Analysis) (domanalysis.Result, error) {
		called = true
		return domanalysis.Result{}, nil
	}}
	h := newTestRouter(a, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"anonymous_questionnaire_id":`},
		{"bad uuid", `{"anonymous_questionnaire_id":"nope","image_paths":["a.jpg"]}`},
		{"no images", fmt.Sprintf(`{"anonymous_questionnaire_id":%q,"image_paths":[]}`, validID)},
		{"bad extension", fmt.Sprintf(`{"anonymous_questionnaire_id":%q,"image_paths":["a.gif"]}`, validID)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/generate-analysis", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rr.Code)
			}
			e := decodeError(t, rr)
			if e.Status != http.StatusBadRequest || e.Message == "" || len(e.Details) == 0 {
				t.Errorf("unexpected envelope: %+v", e)
			}
		})
	}
	if called {
		t.Error("analysis must not run for invalid input")
	}
}

func TestGenerateAnalysis_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("fetch: %w", domain.ErrQuestionnaireNotFound), http.StatusNotFound},
		{"schema", &domain.SchemaError{Path: "routine", Rule: domain.RuleProductCount, Message: "x"}, http.StatusInternalServerError},
		{"upstream", fmt.Errorf("plan: %w", domain.ErrUpstream), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	body := fmt.Sprintf(`{"anonymous_questionnaire_id":%q,"image_paths":["a.png"]}`, validID)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &mockAnalysis{generateFn: func(context.Context, request.Analysis) (domanalysis.Result, error) {
				return domanalysis.Result{}, tc.err
			}}
			rr := do(t, newTestRouter(a, nil, nil), http.MethodPost, "/generate-analysis", body)
			if rr.Code != tc.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.status)
			}
			if e := decodeError(t, rr); e.Status != tc.status {
				t.Errorf("envelope status: got %d, want %d", e.Status, tc.status)
			}
		})
	}
}

func TestGenerateAnalysis_Preflight(t *testing.T) {
	h := newTestRouter(nil, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/generate-analysis", http.NoBody)
	req.Header.Set("Origin", "https://app.skinlab.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, x-client-info, apikey, content-type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("preflight: got %d %q", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin: %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("allow methods: %q", got)
	}
	got := strings.ToLower(rr.Header().Get("Access-Control-Allow-Headers"))
	for _, want := range []string{"authorization", "x-client-info", "apikey", "content-type"} {
		if !strings.Contains(got, want) {
			t.Errorf("allow headers %q missing %s", got, want)
		}
	}
}

func TestCORS_DisallowedHeaderNotGranted(t *testing.T) {
	h := newTestRouter(nil, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/generate-analysis", http.NoBody)
	req.Header.Set("Origin", "https://app.skinlab.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-debug-override")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("preflight with unlisted header must not be granted, got origin %q", got)
	}
}

func TestCORS_PlainOptionsAnswered(t *testing.T) {
	h := newTestRouter(nil, nil, nil)
	rr := do(t, h, http.MethodOptions, "/product-search", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("plain OPTIONS: got %d", rr.Code)
	}
}

func TestProductSearch(t *testing.T) {
	var gotThreshold float64
	var gotCount int
	s := &mockSearch{searchFn: func(_ context.Context, q string, th float64, n int) product.Response {
		gotThreshold, gotCount = th, n
		return product.NewResponse(q, []product.Product{{ID: 7, Title: "Gel Cleanser"}}, false)
	}}
	h := newTestRouter(nil, s, nil)

	rr := do(t, h, http.MethodPost, "/product-search", `{"query":"gentle cleanser","match_count":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if gotThreshold != 0 || gotCount != 3 {
		t.Errorf("params: threshold %v count %d", gotThreshold, gotCount)
	}
	var resp product.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != 7 {
		t.Errorf("unexpected products: %+v", resp.Products)
	}
}

func TestProductSearch_EmptyQuery(t *testing.T) {
	s := &mockSearch{searchFn: func(context.Context, string, float64, int) product.Response {
		t.Fatal("search must not run")
		return product.Response{}
	}}
	rr := do(t, newTestRouter(nil, s, nil), http.MethodPost, "/product-search", `{"query":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		code   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusServiceUnavailable},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(nil, nil, &mockHealth{report: healthuc.Report{
				Status: tc.status,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
			}})
			rr := do(t, h, http.MethodGet, "/health", "")
			if rr.Code != tc.code {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tc.status) || resp.Checks["database"] != "ok" {
				t.Errorf("unexpected body: %+v", resp)
			}
		})
	}
}
