// Package request validates inbound analysis requests.
package request

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// Image path limits.
const (
	MinImages = 1
	MaxImages = 10
)

// imagePathPattern: relative path of word chars, '-', '.', '/' with an allowed image extension.
var imagePathPattern = regexp.MustCompile(`(?i)^[\w\-.][\w\-./]*\.(jpg|jpeg|png|webp)$`)

// Analysis is a validated analysis request.
type Analysis struct {
	questionnaireID string
	imagePaths      []string
}

// New validates a questionnaire ID and image paths.
func New(questionnaireID string, imagePaths []string) (Analysis, error) {
	if err := ValidateQuestionnaireID(questionnaireID); err != nil {
		return Analysis{}, err
	}
	if len(imagePaths) < MinImages || len(imagePaths) > MaxImages {
		return Analysis{}, domain.NewValidationError("image_paths",
			"must contain between %d and %d entries, got %d", MinImages, MaxImages, len(imagePaths))
	}
	for _, p := range imagePaths {
		if err := ValidateImagePath(p); err != nil {
			return Analysis{}, err
		}
	}

	paths := make([]string, len(imagePaths))
	copy(paths, imagePaths)
	return Analysis{questionnaireID: strings.ToLower(questionnaireID), imagePaths: paths}, nil
}

// ValidateQuestionnaireID accepts only the canonical 36-character UUID form.
func ValidateQuestionnaireID(id string) error {
	if len(id) != 36 {
		return domain.NewValidationError("anonymous_questionnaire_id", "must be a UUID")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewValidationError("anonymous_questionnaire_id", "must be a UUID")
	}
	return nil
}

// ValidateImagePath checks the storage path shape. Any ".." segment is rejected.
func ValidateImagePath(p string) error {
	if !imagePathPattern.MatchString(p) {
		return domain.NewValidationError("image_paths",
			"%q must be a relative path ending in .jpg, .jpeg, .png or .webp", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return domain.NewValidationError("image_paths", "%q must not contain relative segments", p)
		}
	}
	return nil
}

// MimeType returns the inline-data MIME type for an already validated image path.
func MimeType(p string) string {
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// QuestionnaireID returns the lower-cased questionnaire UUID.
func (a *Analysis) QuestionnaireID() string { return a.questionnaireID }

// ImagePaths returns the validated storage paths.
func (a *Analysis) ImagePaths() []string { return a.imagePaths }
