// Package analysis runs the generate-analysis pipeline: questionnaire and photos in,
// a schema-valid skin analysis and routine out.
package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/skinlab/internal/domain"
	domanalysis "github.com/kailas-cloud/skinlab/internal/domain/analysis"
	"github.com/kailas-cloud/skinlab/internal/domain/product"
	"github.com/kailas-cloud/skinlab/internal/domain/request"
	"github.com/kailas-cloud/skinlab/internal/logger"
	"github.com/kailas-cloud/skinlab/internal/metrics"
	"github.com/kailas-cloud/skinlab/internal/transport/vertex"
	"github.com/kailas-cloud/skinlab/internal/usecase/prompt"
)

// MaxToolCalls bounds the product searches dispatched per request.
const MaxToolCalls = domanalysis.RoutineSize

// Config holds model and search tuning.
type Config struct {
	PlanningModel   string
	SynthesisModel  string
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens int
	MaxStreamBytes  int64
	MatchThreshold  float64
	MatchCount      int
}

// Service orchestrates one analysis per call. It holds no per-request state.
type Service struct {
	questionnaires QuestionnaireReader
	images         ImageStore
	tokens         TokenSource
	model          Model
	search         ProductSearcher
	prompts        PromptBuilder
	cfg            Config
}

// New creates an analysis service.
func New(
	questionnaires QuestionnaireReader,
	images ImageStore,
	tokens TokenSource,
	model Model,
	search ProductSearcher,
	prompts PromptBuilder,
	cfg Config,
) *Service {
	return &Service{
		questionnaires: questionnaires,
		images:         images,
		tokens:         tokens,
		model:          model,
		search:         search,
		prompts:        prompts,
		cfg:            cfg,
	}
}

// Generate runs the full pipeline for a validated request.
func (s *Service) Generate(ctx context.Context, req request.Analysis) (domanalysis.Result, error) {
	ctx = logger.With(ctx, zap.String("questionnaire_id", req.QuestionnaireID()))
	log := logger.FromContext(ctx)
	start := time.Now()

	result, err := s.generate(ctx, req)
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues(outcome(err)).Inc()
		return domanalysis.Result{}, err
	}

	metrics.AnalysisTotal.WithLabelValues("success").Inc()
	log.Info("Analysis generated",
		zap.Int("overall_score", result.Analysis.OverallScore),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (s *Service) generate(ctx context.Context, req request.Analysis) (domanalysis.Result, error) {
	log := logger.FromContext(ctx)

	questionnaire, err := s.questionnaires.Get(ctx, req.QuestionnaireID())
	if err != nil {
		return domanalysis.Result{}, fmt.Errorf("fetch questionnaire: %w", err)
	}

	promptText, err := s.prompts.Build(questionnaire)
	if err != nil {
		return domanalysis.Result{}, fmt.Errorf("build prompt: %w", err)
	}

	imageParts, err := s.downloadImages(ctx, req.ImagePaths())
	if err != nil {
		return domanalysis.Result{}, fmt.Errorf("download images: %w", err)
	}

	if _, err := s.tokens.Token(ctx); err != nil {
		return domanalysis.Result{}, fmt.Errorf("acquire access token: %w", err)
	}

	userTurn := vertex.Content{
		Role:  vertex.RoleUser,
		Parts: append([]vertex.Part{{Text: promptText}}, imageParts...),
	}

	plan, err := s.model.GenerateContent(ctx, s.cfg.PlanningModel, &vertex.GenerateRequest{
		Contents:         []vertex.Content{userTurn},
		Tools:            []vertex.Tool{productSearchTool()},
		GenerationConfig: s.generationConfig(""),
		SafetySettings:   vertex.DefaultSafetySettings(),
	})
	if err != nil {
		return domanalysis.Result{}, fmt.Errorf("planning call: %w", err)
	}

	calls := plan.FunctionCalls()
	var raw string
	if len(calls) == 0 {
		log.Warn("Planning model returned no tool calls, using its text as the final answer")
		raw = plan.Text()
	} else {
		if len(calls) > MaxToolCalls {
			log.Warn("Planning model requested too many tool calls, extra calls dropped",
				zap.Int("requested", len(calls)), zap.Int("max", MaxToolCalls))
			calls = calls[:MaxToolCalls]
		}

		responses := s.runToolCalls(ctx, calls)

		raw, err = s.model.StreamGenerateContent(ctx, s.cfg.SynthesisModel, &vertex.GenerateRequest{
			Contents: []vertex.Content{
				userTurn,
				plan.ModelTurn(MaxToolCalls),
				{Role: vertex.RoleUser, Parts: append(responses, vertex.Part{Text: prompt.SynthesisInstruction()})},
			},
			GenerationConfig: s.generationConfig("application/json"),
			SafetySettings:   vertex.DefaultSafetySettings(),
		}, s.cfg.MaxStreamBytes)
		if err != nil {
			return domanalysis.Result{}, fmt.Errorf("synthesis call: %w", err)
		}
	}

	result, err := parseResult(raw)
	if err != nil {
		log.Error("Model output failed schema validation",
			zap.Error(err),
			logger.Payload("raw_output", raw))
		return domanalysis.Result{}, err
	}
	return result, nil
}

// downloadImages fetches every photo concurrently; any failure fails the batch.
func (s *Service) downloadImages(ctx context.Context, paths []string) ([]vertex.Part, error) {
	parts := make([]vertex.Part, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			data, err := s.images.Download(gctx, p)
			if err != nil {
				return fmt.Errorf("image %s: %w", p, err)
			}
			parts[i] = vertex.Part{InlineData: &vertex.Blob{
				MimeType: request.MimeType(p),
				Data:     base64.StdEncoding.EncodeToString(data),
			}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// runToolCalls answers every call concurrently. A failing call yields an inline
// error in its own slot and never cancels its siblings.
func (s *Service) runToolCalls(ctx context.Context, calls []vertex.FunctionCall) []vertex.Part {
	parts := make([]vertex.Part, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parts[i] = vertex.Part{FunctionResponse: &vertex.FunctionResponse{
				Name:     call.Name,
				Response: s.answer(ctx, call),
			}}
		}()
	}
	wg.Wait()
	return parts
}

func (s *Service) answer(ctx context.Context, call vertex.FunctionCall) (resp product.Response) {
	log := logger.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Product search panicked", zap.Any("panic", r), zap.Stack("stack"))
			resp = product.ErrorResponse("", "product search failed")
		}
	}()

	if call.Name != prompt.ToolName {
		log.Warn("Planning model called an unknown tool", zap.String("tool", call.Name))
		return product.ErrorResponse("", fmt.Sprintf("unknown tool %q", call.Name))
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return product.ErrorResponse("", "arguments must be an object with a string query")
	}
	return s.search.Search(ctx, args.Query, s.cfg.MatchThreshold, s.cfg.MatchCount)
}

func (s *Service) generationConfig(mimeType string) *vertex.GenerationConfig {
	return &vertex.GenerationConfig{
		Temperature:      s.cfg.Temperature,
		TopP:             s.cfg.TopP,
		TopK:             s.cfg.TopK,
		MaxOutputTokens:  s.cfg.MaxOutputTokens,
		ResponseMimeType: mimeType,
	}
}

func productSearchTool() vertex.Tool {
	return vertex.Tool{FunctionDeclarations: []vertex.FunctionDeclaration{{
		Name:        prompt.ToolName,
		Description: "Search the skincare product catalog. Returns real products with ids, prices and ratings.",
		Parameters: &vertex.Schema{
			Type: "object",
			Properties: map[string]*vertex.Schema{
				"query": {
					Type:        "string",
					Description: "Natural-language description of the ideal product, at most 1000 characters.",
				},
			},
			Required: []string{"query"},
		},
	}}}
}

// parseResult extracts the JSON object from model text and validates it.
func parseResult(raw string) (domanalysis.Result, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return domanalysis.Result{}, fmt.Errorf("model returned no JSON: %w", domain.ErrEmptyModelOutput)
	}

	var result domanalysis.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return domanalysis.Result{}, &domain.SchemaError{
			Path:    "$",
			Rule:    domain.RuleMalformed,
			Message: err.Error(),
		}
	}
	if err := domanalysis.Validate(&result); err != nil {
		return domanalysis.Result{}, fmt.Errorf("validate output: %w", err)
	}
	return result, nil
}

// extractJSON strips markdown fences and returns the outermost object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuestionnaireNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSchemaViolation), errors.Is(err, domain.ErrEmptyModelOutput):
		return "invalid_output"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_request"
	default:
		return "error"
	}
}
