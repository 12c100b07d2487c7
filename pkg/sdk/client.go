package skinlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/skinlab/internal/domain/product"
	"github.com/kailas-cloud/skinlab/internal/domain/request"
)

// maxResponseBytes bounds a decoded response body.
const maxResponseBytes = 8 << 20

// Client is the skinlab SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	obs     *observer
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("skinlab: invalid base url %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		http:    hc,
		obs:     obs,
	}, nil
}

// GenerateAnalysis runs a full analysis for a questionnaire and 1-10 photo paths.
// Input is validated locally before any request is sent.
func (c *Client) GenerateAnalysis(
	ctx context.Context, questionnaireID string, imagePaths []string,
) (_ AnalysisResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("generate_analysis", start, err) }()

	if _, err = request.New(questionnaireID, imagePaths); err != nil {
		return AnalysisResult{}, fmt.Errorf("generate analysis: %w", err)
	}

	var res AnalysisResult
	body := analysisRequest{QuestionnaireID: questionnaireID, ImagePaths: imagePaths}
	if _, err = c.do(ctx, http.MethodPost, "/generate-analysis", body, &res); err != nil {
		return AnalysisResult{}, fmt.Errorf("generate analysis: %w", err)
	}
	return res, nil
}

// SearchProducts queries the product catalog. A response with FallbackUsed set
// came from keyword matching rather than semantic search.
func (c *Client) SearchProducts(
	ctx context.Context, query string, opts ...SearchOption,
) (_ ProductSearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search_products", start, err) }()

	if err = product.ValidateQuery(query); err != nil {
		return ProductSearchResponse{}, fmt.Errorf("search products: %w", err)
	}

	body := searchRequest{Query: query}
	for _, o := range opts {
		o(&body)
	}

	var resp ProductSearchResponse
	if _, err = c.do(ctx, http.MethodPost, "/product-search", body, &resp); err != nil {
		return ProductSearchResponse{}, fmt.Errorf("search products: %w", err)
	}
	return resp, nil
}

// do sends a JSON request and decodes the response into out. Non-2xx responses
// are returned as *APIError; out is still decoded for them when possible.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env errorEnvelope
		if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		} else if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return resp.StatusCode, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// IsRetryable reports whether err is worth retrying: transport failures and 5xx.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return !errors.Is(err, ErrValidation)
}
