package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/logger"
)

// ErrorBody is the payload of the error envelope.
type ErrorBody struct {
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Details []string `json:"details,omitempty"`
}

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrQuestionnaireNotFound, http.StatusNotFound, "Questionnaire not found"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details ...string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Message: message,
		Status:  status,
		Details: details,
	}})
}

func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message)
		return true
	}
}

// validationHandler reports the offending field back to the client.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "Validation failed", ve.Error())
		return true
	}
	writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
	return true
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Failed to generate analysis")
}
