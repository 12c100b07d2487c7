// Package chi exposes the HTTP API on a chi router.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domanalysis "github.com/kailas-cloud/skinlab/internal/domain/analysis"
	"github.com/kailas-cloud/skinlab/internal/domain/product"
	"github.com/kailas-cloud/skinlab/internal/domain/request"
	healthuc "github.com/kailas-cloud/skinlab/internal/usecase/health"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// AnalysisGenerator runs the analysis pipeline.
type AnalysisGenerator interface {
	Generate(ctx context.Context, req request.Analysis) (domanalysis.Result, error)
}

// ProductSearcher runs product searches.
type ProductSearcher interface {
	Search(ctx context.Context, query string, threshold float64, count int) product.Response
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	analysis      AnalysisGenerator
	search        ProductSearcher
	health        HealthChecker
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(analysis AnalysisGenerator, search ProductSearcher, health HealthChecker) *Server {
	return &Server{
		analysis:      analysis,
		search:        search,
		health:        health,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/generate-analysis", s.GenerateAnalysis)
	r.Post("/product-search", s.ProductSearch)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// GenerateAnalysisRequest is the body of POST /generate-analysis.
type GenerateAnalysisRequest struct {
	QuestionnaireID string   `json:"anonymous_questionnaire_id"`
	ImagePaths      []string `json:"image_paths"`
}

// GenerateAnalysis handles POST /generate-analysis.
func (s *Server) GenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	var body GenerateAnalysisRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := request.New(body.QuestionnaireID, body.ImagePaths)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	result, err := s.analysis.Generate(r.Context(), req)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ProductSearchRequest is the body of POST /product-search.
type ProductSearchRequest struct {
	Query          string  `json:"query"`
	MatchThreshold float64 `json:"match_threshold"`
	MatchCount     int     `json:"match_count"`
}

// ProductSearch handles POST /product-search.
func (s *Server) ProductSearch(w http.ResponseWriter, r *http.Request) {
	var body ProductSearchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if err := product.ValidateQuery(body.Query); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.search.Search(r.Context(), body.Query, body.MatchThreshold, body.MatchCount))
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}
