// Package vertex talks to the Vertex AI REST API: text embeddings and Gemini generation.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// DefaultBaseURL is used when Config.BaseURL is empty; the location is prepended as a subdomain.
const DefaultBaseURL = "https://%s-aiplatform.googleapis.com"

const maxErrorBody = 4 << 10

// TokenSource supplies bearer tokens and accepts invalidation after an auth failure.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Config holds Vertex AI endpoint settings.
type Config struct {
	BaseURL    string
	ProjectID  string
	Location   string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *zap.Logger
}

// Client sends authenticated requests to publisher model endpoints.
type Client struct {
	baseURL  string
	project  string
	location string
	http     *http.Client
	tokens   TokenSource
	logger   *zap.Logger
}

// NewClient creates a Vertex AI client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if cfg.Location == "" {
		return nil, fmt.Errorf("location is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf(DefaultBaseURL, cfg.Location)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		project:  cfg.ProjectID,
		location: cfg.Location,
		http:     httpClient,
		tokens:   cfg.Tokens,
		logger:   logger,
	}, nil
}

// APIError is a non-2xx response from Vertex AI.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vertex API error %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 401/403 to domain.ErrUnauthorized and everything else to domain.ErrUpstream.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrUnauthorized
	}
	return domain.ErrUpstream
}

func (c *Client) modelURL(model, method string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		c.baseURL, c.project, c.location, model, method)
}

// post sends body as JSON and returns the open response on 2xx.
// On 401/403 the token cache is invalidated before the error is returned.
func (c *Client) post(ctx context.Context, url string, body any) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("send request: %w", ctxErr)
		}
		return nil, fmt.Errorf("send request: %v: %w", err, domain.ErrUpstream)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		if errors.Is(apiErr, domain.ErrUnauthorized) {
			c.tokens.Invalidate()
			c.logger.Warn("Vertex rejected access token, cache invalidated",
				zap.Int("status", resp.StatusCode))
		}
		return nil, apiErr
	}
	return resp, nil
}
