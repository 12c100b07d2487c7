package skinlab

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// Sentinel errors. Use errors.Is() to check.
var (
	ErrValidation            = domain.ErrValidation
	ErrQuestionnaireNotFound = domain.ErrQuestionnaireNotFound
	ErrUnauthorized          = domain.ErrUnauthorized
	ErrServer                = errors.New("skinlab: server error")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("skinlab: %d %s", e.StatusCode, e.Message)
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return msg
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusNotFound:
		return ErrQuestionnaireNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrServer
	}
}
