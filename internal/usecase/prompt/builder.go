// Package prompt renders the analysis instructions sent to the planning model.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/domain/analysis"
)

// DefaultMaxLength caps the rendered prompt, in characters.
const DefaultMaxLength = 60000

var placeholderPattern = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// Builder renders prompts. It holds no mutable state.
type Builder struct {
	maxLength int
}

// New creates a Builder. A non-positive maxLength selects DefaultMaxLength.
func New(maxLength int) *Builder {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Builder{maxLength: maxLength}
}

// Build renders the planning prompt for a questionnaire JSON object.
// The same questionnaire always yields the same prompt.
func (b *Builder) Build(questionnaire []byte) (string, error) {
	data, err := objectJSON(questionnaire)
	if err != nil {
		return "", fmt.Errorf("questionnaire: %w", err)
	}

	r := strings.NewReplacer(
		"{{QUESTIONNAIRE_DATA}}", data,
		"{{HABITS_TABLE}}", table(analysis.Habits),
		"{{INGREDIENTS_TABLE}}", table(analysis.Ingredients),
		"{{ROUTINE_SIZE}}", strconv.Itoa(analysis.RoutineSize),
		"{{TOOL_NAME}}", ToolName,
	)
	out := r.Replace(analysisTemplate)

	if n := utf8.RuneCountInString(out); n > b.maxLength {
		return "", fmt.Errorf("prompt is %d characters, limit %d: %w", n, b.maxLength, domain.ErrPromptInvalid)
	}
	if left := placeholderPattern.FindString(stripData(out, data)); left != "" {
		return "", fmt.Errorf("unresolved placeholder %s: %w", left, domain.ErrPromptInvalid)
	}
	return out, nil
}

// SynthesisInstruction is the final user turn that asks for the JSON answer.
func SynthesisInstruction() string {
	return synthesisInstruction
}

// objectJSON returns raw, trimmed of surrounding whitespace, if it is a single
// JSON object. The bytes are embedded as stored.
func objectJSON(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return "", fmt.Errorf("must be a JSON object: invalid JSON: %w", domain.ErrPromptInvalid)
	}
	if trimmed[0] != '{' {
		return "", fmt.Errorf("must be a JSON object: %w", domain.ErrPromptInvalid)
	}
	return string(trimmed), nil
}

// stripData removes the user-supplied block so its content cannot trip the placeholder check.
func stripData(rendered, data string) string {
	return strings.Replace(rendered, data, "", 1)
}

func table(entries []analysis.ReferenceEntry) string {
	var sb strings.Builder
	sb.WriteString("| Name | Evidence |\n|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "| %s | %s |\n", e.Name, e.Detail)
	}
	return strings.TrimRight(sb.String(), "\n")
}
