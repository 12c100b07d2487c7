package catalog

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/kailas-cloud/skinlab/internal/domain/product"
)

// productRow mirrors the columns returned by match_products and the products table.
type productRow struct {
	ID             int64           `db:"id"`
	Brand          sql.NullString  `db:"brand"`
	Title          sql.NullString  `db:"title"`
	URL            sql.NullString  `db:"url"`
	ImageURL       sql.NullString  `db:"image_url"`
	PriceUSD       sql.NullFloat64 `db:"price_usd"`
	StarRating     sql.NullFloat64 `db:"star_rating"`
	ProductType    sql.NullString  `db:"product_type"`
	Ingredients    pq.StringArray  `db:"ingredients"`
	KeyIngredients pq.StringArray  `db:"key_ingredients"`
	TargetAudience sql.NullString  `db:"target_audience"`
	Concerns       pq.StringArray  `db:"concerns"`
	Summary        sql.NullString  `db:"summary"`
	Similarity     sql.NullFloat64 `db:"similarity"`
}

func (r productRow) toDomain() product.Product {
	return product.Product{
		ID:             r.ID,
		Brand:          r.Brand.String,
		Title:          r.Title.String,
		URL:            r.URL.String,
		ImageURL:       r.ImageURL.String,
		PriceUSD:       r.PriceUSD.Float64,
		StarRating:     r.StarRating.Float64,
		ProductType:    r.ProductType.String,
		Ingredients:    nonNil(r.Ingredients),
		KeyIngredients: nonNil(r.KeyIngredients),
		TargetAudience: r.TargetAudience.String,
		Concerns:       nonNil(r.Concerns),
		Summary:        r.Summary.String,
		Similarity:     r.Similarity.Float64,
	}
}

func nonNil(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}

func toDomain(rows []productRow) []product.Product {
	out := make([]product.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
