// Package catalog queries the product catalog in Postgres.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/skinlab/internal/domain/product"
)

const productColumns = `id, brand, title, url, image_url, price_usd, star_rating, product_type,
	ingredients, key_ingredients, target_audience, concerns, summary`

const matchProductsQuery = `SELECT ` + productColumns + `, similarity
	FROM match_products($1, $2, $3)`

const textSearchQuery = `SELECT ` + productColumns + `
	FROM products
	WHERE title ILIKE $1 ESCAPE '\'
	   OR brand ILIKE $1 ESCAPE '\'
	   OR product_type ILIKE $1 ESCAPE '\'
	   OR summary ILIKE $1 ESCAPE '\'
	LIMIT $2`

// querier is the consumer interface for catalog reads (ISP).
type querier interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Repo implements the product search repositories.
type Repo struct {
	db querier
}

// New creates a catalog repository.
func New(db querier) *Repo {
	return &Repo{db: db}
}

// MatchProducts runs the match_products similarity RPC.
// Rows come back in the order the procedure returns them.
func (r *Repo) MatchProducts(
	ctx context.Context, embedding []float32, threshold float64, count int,
) ([]product.Product, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("match products: empty embedding")
	}

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, matchProductsQuery,
		pgvector.NewVector(embedding), threshold, count,
	); err != nil {
		return nil, fmt.Errorf("match products: %w", err)
	}
	return toDomain(rows), nil
}

// TextSearch finds products whose title, brand, type or summary contain the query,
// case-insensitively, and scores them with product.ApplyFallbackScores.
func (r *Repo) TextSearch(ctx context.Context, query string, count int) ([]product.Product, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, textSearchQuery, likePattern(query), count); err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	products := toDomain(rows)
	product.ApplyFallbackScores(products, query)
	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps the query for a substring ILIKE match with metacharacters escaped.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
