package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

func TestGenerateContent_FunctionCalls(t *testing.T) {
	var got GenerateRequest
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"functionCall":{"name":"skincare_product_search","args":{"query":"gentle cleanser"}}},
			{"functionCall":{"name":"skincare_product_search","args":{"query":"spf 50"}}}
		]}}],"usageMetadata":{"promptTokenCount":10,"totalTokenCount":20}}`))
	})

	temp := 0.2
	req := &GenerateRequest{
		Contents: []Content{{Role: RoleUser, Parts: []Part{{Text: "plan"}}}},
		Tools: []Tool{{FunctionDeclarations: []FunctionDeclaration{{
			Name: "skincare_product_search",
			Parameters: &Schema{
				Type:       "object",
				Properties: map[string]*Schema{"query": {Type: "string"}},
				Required:   []string{"query"},
			},
		}}}},
		GenerationConfig: &GenerationConfig{Temperature: &temp},
		SafetySettings:   DefaultSafetySettings(),
	}

	resp, err := c.GenerateContent(context.Background(), "gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/models/gemini-2.5-flash:generateContent") {
		t.Errorf("unexpected path %s", gotPath)
	}
	if len(got.Tools) != 1 || got.Tools[0].FunctionDeclarations[0].Name != "skincare_product_search" {
		t.Errorf("tools not sent: %+v", got.Tools)
	}
	if len(got.SafetySettings) != 4 {
		t.Errorf("expected 4 safety settings, got %d", len(got.SafetySettings))
	}

	calls := resp.FunctionCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(calls[1].Args, &args); err != nil || args.Query != "spf 50" {
		t.Errorf("unexpected args %s: %v", calls[1].Args, err)
	}
}

func TestGenerateContent_Text(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	})

	resp, err := c.GenerateContent(context.Background(), "m", &GenerateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text() != `{"a":1}` {
		t.Errorf("text = %q", resp.Text())
	}
	if resp.FunctionCalls() != nil {
		t.Error("expected no function calls")
	}
}

func TestGenerateResponse_ModelTurn(t *testing.T) {
	var resp GenerateResponse
	body := `{"candidates":[{"content":{"role":"model","parts":[
		{"text":"weighing options","thought":true},
		{"functionCall":{"name":"skincare_product_search","args":{"query":"cleanser"}},"thoughtSignature":"SIG123"},
		{"functionCall":{"name":"skincare_product_search","args":{"query":"serum"}}},
		{"functionCall":{"name":"skincare_product_search","args":{"query":"toner"}}}
	]}}]}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}

	turn := resp.ModelTurn(2)
	if turn.Role != RoleModel || len(turn.Parts) != 3 {
		t.Fatalf("expected thought plus 2 calls, got %+v", turn)
	}
	if turn.Parts[1].ThoughtSignature != "SIG123" {
		t.Errorf("signature lost: %+v", turn.Parts[1])
	}

	out, err := json.Marshal(turn)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"thoughtSignature":"SIG123"`) {
		t.Errorf("signature not re-encoded: %s", out)
	}
	if strings.Contains(string(out), "toner") {
		t.Errorf("calls past the limit must be dropped: %s", out)
	}
	if resp.Text() != "" {
		t.Errorf("thought parts are not answer text, got %q", resp.Text())
	}
	if len(resp.ModelTurn(0).Parts) != 4 {
		t.Error("non-positive limit keeps every part")
	}
}

func TestGenerateContent_Forbidden(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.GenerateContent(context.Background(), "m", &GenerateRequest{})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if tokens.invalidated != 1 {
		t.Errorf("expected invalidation, got %d", tokens.invalidated)
	}
}

func TestStreamGenerateContent_ArrayOfChunks(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[
			{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"analysis\":"}]}}]},
			{"candidates":[{"content":{"role":"model","parts":[{"text":"{}"},{"text":","}]}}]},
			{"candidates":[{"content":{"role":"model","parts":[{"text":"\"routine\":{}}"}]},"finishReason":"STOP"}]}
		]`))
	})

	text, err := c.StreamGenerateContent(context.Background(), "gemini-2.5-pro", &GenerateRequest{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, ":streamGenerateContent") {
		t.Errorf("unexpected path %s", gotPath)
	}
	if text != `{"analysis":{},"routine":{}}` {
		t.Errorf("text = %q", text)
	}
}

func TestStreamGenerateContent_NDJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ab\"}]}}]}\n" +
			"{\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"cd\"}]}}]}\n"))
	})

	text, err := c.StreamGenerateContent(context.Background(), "m", &GenerateRequest{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if text != "abcd" {
		t.Errorf("text = %q", text)
	}
}

func TestStreamGenerateContent_TooLarge(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"candidates":[{"content":{"parts":[{"text":"` + strings.Repeat("x", 200) + `"}]}}]}]`))
	})

	_, err := c.StreamGenerateContent(context.Background(), "m", &GenerateRequest{}, 64)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for oversized stream, got %v", err)
	}
}

func TestStreamText_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "  ", domain.ErrEmptyModelOutput},
		{"truncated array", `[{"candidates":[`, domain.ErrUpstream},
		{"error chunk", `[{"error":{"code":500,"message":"internal"}}]`, domain.ErrUpstream},
		{"bad line", "{\"candidates\":[]}\n{oops", domain.ErrUpstream},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := streamText([]byte(tc.body))
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
