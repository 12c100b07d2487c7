package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/metrics"
)

// DefaultMaxStreamBytes bounds the accumulated streaming body.
const DefaultMaxStreamBytes = 8 << 20

const (
	modeGenerate = "generate"
	modeStream   = "stream"
)

// GenerateContent calls :generateContent and decodes the full response.
func (c *Client) GenerateContent(
	ctx context.Context, model string, req *GenerateRequest,
) (*GenerateResponse, error) {
	start := time.Now()

	resp, err := c.post(ctx, c.modelURL(model, "generateContent"), req)
	if err != nil {
		c.observe(model, modeGenerate, "error", start)
		return nil, fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.observe(model, modeGenerate, "error", start)
		return nil, fmt.Errorf("decode generate response: %v: %w", err, domain.ErrUpstream)
	}

	c.observe(model, modeGenerate, "success", start)
	if out.UsageMetadata != nil {
		c.logger.Debug("Generate content usage",
			zap.String("model", model),
			zap.Int("prompt_tokens", out.UsageMetadata.PromptTokenCount),
			zap.Int("total_tokens", out.UsageMetadata.TotalTokenCount))
	}
	return &out, nil
}

// StreamGenerateContent calls :streamGenerateContent, accumulates the whole body
// (at most maxBytes) and returns the concatenated text of every chunk.
// The body is parsed once after the stream ends; chunks may arrive as a JSON
// array or as newline-delimited objects.
func (c *Client) StreamGenerateContent(
	ctx context.Context, model string, req *GenerateRequest, maxBytes int64,
) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxStreamBytes
	}
	start := time.Now()

	resp, err := c.post(ctx, c.modelURL(model, "streamGenerateContent"), req)
	if err != nil {
		c.observe(model, modeStream, "error", start)
		return "", fmt.Errorf("stream generate content: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		c.observe(model, modeStream, "error", start)
		return "", fmt.Errorf("read stream: %v: %w", err, domain.ErrUpstream)
	}
	if int64(len(data)) > maxBytes {
		c.observe(model, modeStream, "error", start)
		return "", fmt.Errorf("stream exceeds %d bytes: %w", maxBytes, domain.ErrUpstream)
	}

	text, err := streamText(data)
	if err != nil {
		c.observe(model, modeStream, "error", start)
		return "", err
	}

	c.observe(model, modeStream, "success", start)
	return text, nil
}

func (c *Client) observe(model, mode, status string, start time.Time) {
	metrics.LLMRequestsTotal.WithLabelValues(model, mode, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(model, mode).Observe(time.Since(start).Seconds())
}

// streamText extracts and joins candidates[0] text parts from every chunk.
func streamText(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("empty stream: %w", domain.ErrEmptyModelOutput)
	}

	var chunks []gjson.Result
	if data[0] == '[' {
		if !gjson.ValidBytes(data) {
			return "", fmt.Errorf("malformed stream body: %w", domain.ErrUpstream)
		}
		chunks = gjson.ParseBytes(data).Array()
	} else {
		for _, line := range bytes.Split(data, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			if !gjson.ValidBytes(line) {
				return "", fmt.Errorf("malformed stream line: %w", domain.ErrUpstream)
			}
			chunks = append(chunks, gjson.ParseBytes(line))
		}
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		if msg := chunk.Get("error.message"); msg.Exists() {
			return "", fmt.Errorf("stream error: %s: %w", msg.String(), domain.ErrUpstream)
		}
		chunk.Get("candidates.0.content.parts.#.text").ForEach(func(_, part gjson.Result) bool {
			sb.WriteString(part.String())
			return true
		})
	}
	return sb.String(), nil
}
