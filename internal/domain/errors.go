package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed or out-of-range client input.
	ErrValidation = errors.New("validation failed")
	// ErrQuestionnaireNotFound signals a missing questionnaire record.
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	// ErrInvalidCredentials signals unusable service-account material. Never retried.
	ErrInvalidCredentials = errors.New("invalid service account credentials")
	// ErrUnauthorized signals a 401/403 from a cloud endpoint.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream signals a failing dependency (network, timeout, 5xx).
	ErrUpstream = errors.New("upstream error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSchemaViolation signals model output that does not match the analysis schema.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrEmptyModelOutput signals a model response with no usable text.
	ErrEmptyModelOutput = errors.New("empty model output")
	// ErrPromptInvalid signals a rendered prompt that is too long or has unresolved placeholders.
	ErrPromptInvalid = errors.New("invalid prompt")
	// ErrStorage signals an image storage failure.
	ErrStorage = errors.New("storage error")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SchemaRule names the schema constraint an output payload violated.
type SchemaRule string

// Schema rules reported by the output validator.
const (
	RuleRequired            SchemaRule = "required"
	RuleRange               SchemaRule = "range"
	RuleLength              SchemaRule = "length"
	RuleEnum                SchemaRule = "enum"
	RuleProductCount        SchemaRule = "product_count"
	RuleMissingCategory     SchemaRule = "missing_category"
	RuleExactlyOneTreatment SchemaRule = "exactly_one_treatment"
	RuleMalformed           SchemaRule = "malformed"
)

// SchemaError wraps ErrSchemaViolation with the path and rule that failed.
type SchemaError struct {
	Path    string
	Rule    SchemaRule
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Rule)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaViolation }
