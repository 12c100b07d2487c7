// Package analysis defines the skin analysis output contract and its strict validator.
package analysis

// Primary skin states the model may report.
const (
	StateExcellent = "Excellent"
	StateGood      = "Good"
	StateFair      = "Fair"
	StateNeedsWork = "Needs Work"
)

// Result is the validated output returned to the client.
type Result struct {
	Analysis SkinAnalysis    `json:"analysis"`
	Routine  SkincareRoutine `json:"routine"`
}

// SkinAnalysis is the scored assessment of the user's skin.
type SkinAnalysis struct {
	OverallScore   int       `json:"overallScore" validate:"min=1,max=99"`
	PrimaryState   string    `json:"primaryState" validate:"oneof=Excellent Good Fair 'Needs Work'"`
	OverallSummary string    `json:"overallSummary" validate:"min=200,max=300"`
	Metrics        Metrics   `json:"metrics"`
	Blueprint      Blueprint `json:"blueprint"`
}

// Metrics are the per-dimension scores.
type Metrics struct {
	Hydration int `json:"hydration" validate:"min=1,max=99"`
	Barrier   int `json:"barrier" validate:"min=1,max=99"`
}

// Blueprint is the recommended approach plus one habit and one ingredient from the reference tables.
type Blueprint struct {
	Approach   string `json:"approach" validate:"required"`
	Habit      string `json:"habit" validate:"required,habit"`
	Ingredient string `json:"ingredient" validate:"required,ingredient"`
}

// SkincareRoutine is the four-step product routine.
type SkincareRoutine struct {
	Products []RoutineProduct `json:"products" validate:"dive"`
}

// RoutineProduct is one routine step backed by a catalog product.
type RoutineProduct struct {
	ProductID   int64    `json:"product_id" validate:"gt=0"`
	Brand       string   `json:"brand" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	ProductURL  string   `json:"product_url" validate:"required"`
	ImageURL    string   `json:"image_url,omitempty"`
	ProductType string   `json:"product_type" validate:"required"`
	PriceUSD    *float64 `json:"price_usd" validate:"required,gte=0"`
	StarRating  *float64 `json:"star_rating" validate:"required,gte=0,lte=5"`
	Reasoning   string   `json:"reasoning" validate:"min=30,max=100"`
}
