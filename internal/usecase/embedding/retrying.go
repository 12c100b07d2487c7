// Package embedding decorates embedding providers with retries and logging.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/resilience"
)

// RetryingEmbedder wraps an Embedder with bounded exponential-backoff retries.
// Auth failures are retried within the same attempt budget; the transport has
// already invalidated the token, so the next attempt refreshes it.
type RetryingEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	backoff  resilience.BackoffConfig
	logger   *zap.Logger
}

// NewRetryingEmbedder wraps inner with the given backoff policy.
func NewRetryingEmbedder(
	inner domain.Embedder, provider, model string,
	backoff resilience.BackoffConfig, logger *zap.Logger,
) *RetryingEmbedder {
	if backoff.RetryOnFunc == nil {
		backoff.RetryOnFunc = retryable
	}
	return &RetryingEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		backoff:  backoff,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder, retrying transient failures.
// Exhausting all attempts returns the last observed error.
func (p *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	var result domain.EmbeddingResult
	err := resilience.WithExponentialBackoff(ctx, p.logger, "embed", p.backoff,
		func(ctx context.Context, _ int) error {
			res, err := p.inner.Embed(ctx, text)
			if err != nil {
				return err
			}
			if len(res.Embedding) == 0 {
				return fmt.Errorf("empty embedding: %w", domain.ErrEmbeddingProviderError)
			}
			result = res
			return nil
		})

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
	)

	return result, nil
}

// retryable rejects configuration errors and caller cancellation.
func retryable(err error) bool {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return false
	}
	return resilience.DefaultRetryOnFunc(err)
}
