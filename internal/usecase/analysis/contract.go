package analysis

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/skinlab/internal/domain/product"
	"github.com/kailas-cloud/skinlab/internal/transport/vertex"
)

// QuestionnaireReader loads a questionnaire as a JSON object.
type QuestionnaireReader interface {
	Get(ctx context.Context, id string) (json.RawMessage, error)
}

// ImageStore downloads user photos.
type ImageStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// TokenSource provides the bearer token for model calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Model runs planning and synthesis calls.
type Model interface {
	GenerateContent(ctx context.Context, model string, req *vertex.GenerateRequest) (*vertex.GenerateResponse, error)
	StreamGenerateContent(ctx context.Context, model string, req *vertex.GenerateRequest, maxBytes int64) (string, error)
}

// ProductSearcher answers product search tool calls.
type ProductSearcher interface {
	Search(ctx context.Context, query string, threshold float64, count int) product.Response
}

// PromptBuilder renders the planning prompt.
type PromptBuilder interface {
	Build(questionnaire []byte) (string, error)
}
