// Package questionnaire loads anonymous questionnaire submissions.
package questionnaire

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

const getQuery = `SELECT row_to_json(q) FROM anonymous_questionnaires q WHERE q.id = $1`

// querier is the consumer interface for questionnaire reads (ISP).
type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Repo reads questionnaires as raw JSON documents.
type Repo struct {
	db querier
}

// New creates a questionnaire repository.
func New(db querier) *Repo {
	return &Repo{db: db}
}

// Get returns the questionnaire row as a JSON object.
func (r *Repo) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var raw []byte
	if err := r.db.GetContext(ctx, &raw, getQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("questionnaire %s: %w", id, domain.ErrQuestionnaireNotFound)
		}
		return nil, fmt.Errorf("get questionnaire %s: %w", id, err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("get questionnaire %s: invalid json", id)
	}
	return json.RawMessage(raw), nil
}
