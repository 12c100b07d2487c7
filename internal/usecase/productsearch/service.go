// Package productsearch finds catalog products for a free-text query with a
// semantic tier and a keyword fallback tier.
package productsearch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/domain/product"
	"github.com/kailas-cloud/skinlab/internal/logger"
	"github.com/kailas-cloud/skinlab/internal/metrics"
	"github.com/kailas-cloud/skinlab/internal/resilience"
)

// Defaults applied when a caller passes zero values.
const (
	DefaultMatchThreshold = 0.5
	DefaultMatchCount     = 5
	MaxMatchCount         = 50
)

// Tier labels for the search outcome metric.
const (
	tierSemantic = "semantic"
	tierFallback = "fallback"
	tierEmpty    = "empty"
)

// Service runs the two-tier product search.
type Service struct {
	catalog Catalog
	embed   Embedder
	backoff resilience.BackoffConfig
}

// New creates a product search service. backoff governs the catalog queries;
// embedding retries belong to the embedder.
func New(catalog Catalog, embed Embedder, backoff resilience.BackoffConfig) *Service {
	return &Service{catalog: catalog, embed: embed, backoff: backoff}
}

// Search never returns an error. An invalid query yields an inline error envelope;
// when both tiers come back empty or fail, the envelope is empty with FallbackUsed set.
func (s *Service) Search(ctx context.Context, query string, threshold float64, count int) product.Response {
	log := logger.FromContext(ctx).With(zap.String("query", query))

	if err := product.ValidateQuery(query); err != nil {
		return product.ErrorResponse(query, err.Error())
	}
	threshold, count = normalize(threshold, count)

	start := time.Now()
	defer func() {
		metrics.ProductSearchDuration.Observe(time.Since(start).Seconds())
	}()

	products, err := s.semantic(ctx, query, threshold, count)
	switch {
	case err != nil:
		log.Warn("Semantic search failed, falling back to text search", zap.Error(err))
	case len(products) == 0:
		log.Info("Semantic search returned no products, falling back to text search")
	default:
		metrics.ProductSearchTotal.WithLabelValues(tierSemantic).Inc()
		log.Info("Product search completed",
			zap.String("tier", tierSemantic),
			zap.Int("count", len(products)),
			zap.Duration("elapsed", time.Since(start)))
		return product.NewResponse(query, products, false)
	}

	products, err = s.text(ctx, query, count)
	if err != nil {
		log.Error("Text search failed", zap.Error(err))
	}
	if len(products) > 0 {
		metrics.ProductSearchTotal.WithLabelValues(tierFallback).Inc()
		log.Info("Product search completed",
			zap.String("tier", tierFallback),
			zap.Int("count", len(products)),
			zap.Duration("elapsed", time.Since(start)))
		return product.NewResponse(query, products, true)
	}

	metrics.ProductSearchTotal.WithLabelValues(tierEmpty).Inc()
	log.Error("Both search tiers returned no products",
		zap.Duration("elapsed", time.Since(start)))
	return product.NewResponse(query, nil, true)
}

func (s *Service) semantic(ctx context.Context, query string, threshold float64, count int) ([]product.Product, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var products []product.Product
	err = resilience.WithExponentialBackoff(ctx, logger.FromContext(ctx), "match_products", s.backoff,
		func(ctx context.Context, _ int) error {
			var err error
			products, err = s.catalog.MatchProducts(ctx, emb.Embedding, threshold, count)
			return err
		})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Service) text(ctx context.Context, query string, count int) ([]product.Product, error) {
	var products []product.Product
	err := resilience.WithExponentialBackoff(ctx, logger.FromContext(ctx), "text_search", s.backoff,
		func(ctx context.Context, _ int) error {
			var err error
			products, err = s.catalog.TextSearch(ctx, query, count)
			return err
		})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func normalize(threshold float64, count int) (float64, int) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	if count <= 0 {
		count = DefaultMatchCount
	}
	if count > MaxMatchCount {
		count = MaxMatchCount
	}
	return threshold, count
}
