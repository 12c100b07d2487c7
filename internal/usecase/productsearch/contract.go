package productsearch

import (
	"context"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/domain/product"
)

// Catalog is the storage contract for product lookups.
type Catalog interface {
	MatchProducts(ctx context.Context, embedding []float32, threshold float64, count int) ([]product.Product, error)
	TextSearch(ctx context.Context, query string, count int) ([]product.Product, error)
}

// Embedder vectorizes search queries.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
