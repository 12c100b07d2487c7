// Package product holds the catalog product model and the product search envelope.
package product

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// MaxQueryLength is the longest search query accepted, in characters.
const MaxQueryLength = 1000

// Product is a single catalog hit. Identifiers always come from an executed catalog query.
type Product struct {
	ID             int64    `json:"id"`
	Brand          string   `json:"brand"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	ImageURL       string   `json:"image_url"`
	PriceUSD       float64  `json:"price_usd"`
	StarRating     float64  `json:"star_rating"`
	ProductType    string   `json:"product_type"`
	Ingredients    []string `json:"ingredients"`
	KeyIngredients []string `json:"key_ingredients"`
	TargetAudience string   `json:"target_audience"`
	Concerns       []string `json:"concerns"`
	Summary        string   `json:"summary"`
	Similarity     float64  `json:"similarity"`
}

// Response is the uniform product search envelope returned to callers and to the model.
type Response struct {
	Query        string    `json:"query"`
	ProductCount int       `json:"product_count"`
	Products     []Product `json:"products"`
	Error        string    `json:"error,omitempty"`
	FallbackUsed bool      `json:"fallback_used,omitempty"`
}

// NewResponse builds an envelope whose count always matches the product list.
func NewResponse(query string, products []Product, fallbackUsed bool) Response {
	if products == nil {
		products = []Product{}
	}
	return Response{
		Query:        query,
		ProductCount: len(products),
		Products:     products,
		FallbackUsed: fallbackUsed,
	}
}

// ErrorResponse builds an empty envelope carrying an inline error.
func ErrorResponse(query, msg string) Response {
	return Response{Query: query, Products: []Product{}, Error: msg}
}

// ValidateQuery checks a search query is non-empty and at most MaxQueryLength characters.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.NewValidationError("query", "must not be empty")
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		return domain.NewValidationError("query", "must be at most %d characters, got %d", MaxQueryLength, n)
	}
	return nil
}

// Text fallback scoring constants.
const (
	fallbackBase         = 0.5
	fallbackTitleBonus   = 0.3
	fallbackBrandBonus   = 0.2
	fallbackTypeBonus    = 0.2
	fallbackIndexPenalty = 0.05
	fallbackFloor        = 0.3
	fallbackCap          = 0.85
)

// FallbackScore computes the synthetic similarity of a keyword match at position index.
// The result is always within [0.3, 0.85] and never increases with index.
func FallbackScore(p *Product, query string, index int) float64 {
	q := strings.ToLower(query)
	score := fallbackBase
	if strings.Contains(strings.ToLower(p.Title), q) {
		score += fallbackTitleBonus
	}
	if strings.Contains(strings.ToLower(p.Brand), q) {
		score += fallbackBrandBonus
	}
	if strings.Contains(strings.ToLower(p.ProductType), q) {
		score += fallbackTypeBonus
	}
	score -= fallbackIndexPenalty * float64(index)
	score = math.Max(score, fallbackFloor)
	return math.Min(score, fallbackCap)
}

// ApplyFallbackScores sets Similarity on keyword matches in result order.
func ApplyFallbackScores(products []Product, query string) {
	for i := range products {
		products[i].Similarity = FallbackScore(&products[i], query, i)
	}
}
