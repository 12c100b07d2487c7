package vertex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/metrics"
)

const (
	providerName = "vertex"
	// DefaultEmbedTimeout bounds a single embedding request.
	DefaultEmbedTimeout = 15 * time.Second
	maxEmbedBody        = 4 << 20
)

// embeddingPaths lists the response shapes an embedding may arrive in, in priority order.
var embeddingPaths = []string{
	"predictions.0.embeddings.values",
	"predictions.0.embeddings",
	"embeddings.0.values",
}

// EmbedderConfig holds embedding model settings.
type EmbedderConfig struct {
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Embedder implements domain.Embedder on the Vertex AI :predict endpoint.
// It performs a single attempt; retries live in the usecase layer.
type Embedder struct {
	client     *Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewEmbedder creates a Vertex embedding provider.
func NewEmbedder(client *Client, cfg EmbedderConfig) *Embedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	return &Embedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
	}
}

type embedRequest struct {
	Instances  []embedInstance  `json:"instances"`
	Parameters *embedParameters `json:"parameters,omitempty"`
}

type embedInstance struct {
	Content string `json:"content"`
}

type embedParameters struct {
	OutputDimensionality int `json:"outputDimensionality,omitempty"`
}

// Embed implements domain.Embedder. The request is cancelled when the timeout elapses.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body := embedRequest{Instances: []embedInstance{{Content: text}}}
	if e.dimensions > 0 {
		body.Parameters = &embedParameters{OutputDimensionality: e.dimensions}
	}

	start := time.Now()
	vec, err := e.embed(attemptCtx, body)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("embedding request timed out after %s: %w", e.timeout, domain.ErrUpstream)
		}
		e.fail(errorType(err))
		e.client.logger.Debug("Embedding attempt failed", zap.String("model", e.model), zap.Error(err))
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (e *Embedder) embed(ctx context.Context, body embedRequest) ([]float32, error) {
	resp, err := e.client.post(ctx, e.client.modelURL(e.model, "predict"), body)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbedBody))
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %v: %w", err, domain.ErrUpstream)
	}

	vec, ok := extractEmbedding(data)
	if !ok {
		return nil, fmt.Errorf("no embedding found in response: %w", domain.ErrEmbeddingProviderError)
	}
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d: %w",
			len(vec), e.dimensions, domain.ErrEmbeddingProviderError)
	}
	return vec, nil
}

func (e *Embedder) fail(errorType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, errorType).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "bad_response"
	default:
		return "api_error"
	}
}

// extractEmbedding tries each known response shape in order; the first
// non-empty all-numeric array wins.
func extractEmbedding(data []byte) ([]float32, bool) {
	if !gjson.ValidBytes(data) {
		return nil, false
	}
	for _, path := range embeddingPaths {
		if vec, ok := toVector(gjson.GetBytes(data, path)); ok {
			return vec, true
		}
	}
	return nil, false
}

func toVector(r gjson.Result) ([]float32, bool) {
	if !r.IsArray() {
		return nil, false
	}
	items := r.Array()
	if len(items) == 0 {
		return nil, false
	}
	vec := make([]float32, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, false
		}
		vec[i] = float32(item.Float())
	}
	return vec, true
}
