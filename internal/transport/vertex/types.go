package vertex

import "encoding/json"

// Roles used in conversation turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Content is a single conversation turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one element of a turn. Exactly one payload field is set.
// ThoughtSignature is opaque and must be echoed back unchanged with the part it came on.
type Part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Blob is base64-encoded inline media.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse answers a FunctionCall.
type FunctionResponse struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

// Tool groups function declarations offered to the model.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration describes a callable tool.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Schema is the OpenAPI subset used for tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// SafetySetting sets the block threshold for a harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateRequest is the body of :generateContent and :streamGenerateContent.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
}

// GenerateResponse is the body returned by :generateContent.
type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// UsageMetadata reports token usage.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// FunctionCalls returns the function calls of the first candidate in order.
func (r *GenerateResponse) FunctionCalls() []FunctionCall {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	var calls []FunctionCall
	for _, p := range r.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// ModelTurn returns the first candidate's content as a model turn to replay in
// the next request. Parts are kept as returned, signatures included; function
// calls past maxCalls are dropped so the turn matches the responses sent back.
// maxCalls <= 0 keeps every call.
func (r *GenerateResponse) ModelTurn(maxCalls int) Content {
	turn := Content{Role: RoleModel}
	if r == nil || len(r.Candidates) == 0 {
		return turn
	}
	calls := 0
	for _, p := range r.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			if maxCalls > 0 && calls >= maxCalls {
				continue
			}
			calls++
		}
		turn.Parts = append(turn.Parts, p)
	}
	return turn
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var text string
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		text += p.Text
	}
	return text
}

// DefaultSafetySettings blocks only high-probability harm in every category.
func DefaultSafetySettings() []SafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, SafetySetting{Category: c, Threshold: "BLOCK_ONLY_HIGH"})
	}
	return settings
}
