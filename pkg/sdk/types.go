package skinlab

import (
	domanalysis "github.com/kailas-cloud/skinlab/internal/domain/analysis"
	"github.com/kailas-cloud/skinlab/internal/domain/product"
)

// AnalysisResult is the validated analysis and routine returned by GenerateAnalysis.
type AnalysisResult = domanalysis.Result

// RoutineProduct is one step of the recommended routine.
type RoutineProduct = domanalysis.RoutineProduct

// Product is a catalog product with its similarity score.
type Product = product.Product

// ProductSearchResponse is the envelope returned by SearchProducts.
type ProductSearchResponse = product.Response

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Healthy reports whether every component check passed.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

type analysisRequest struct {
	QuestionnaireID string   `json:"anonymous_questionnaire_id"`
	ImagePaths      []string `json:"image_paths"`
}

type searchRequest struct {
	Query          string  `json:"query"`
	MatchThreshold float64 `json:"match_threshold,omitempty"`
	MatchCount     int     `json:"match_count,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Message string   `json:"message"`
		Status  int      `json:"status"`
		Details []string `json:"details"`
	} `json:"error"`
}
