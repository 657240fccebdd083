package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/cv-analyzer/internal/config"
	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/models"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the part of genai.Models the client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiService struct {
	generator contentGenerator
	modelName string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGeminiService returns an AnalysisClient backed by the Gemini API. An empty API key is
// reported per call as an AuthConfigError.
func NewGeminiService(ctx context.Context, cfg *config.Config, log *zap.Logger) (AnalysisClient, error) {
	apiKey := strings.TrimSpace(cfg.Gemini.APIKey)
	if apiKey == "" {
		return &geminiService{logger: log}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiService(client.Models, cfg.Gemini.Model, cfg.Upstream.Timeout, log), nil
}

func newGeminiService(generator contentGenerator, model string, timeout time.Duration, log *zap.Logger) *geminiService {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	return &geminiService{
		generator: generator,
		modelName: model,
		timeout:   timeout,
		logger:    log,
	}
}

// Analyze implements AnalysisClient.
func (g *geminiService) Analyze(ctx context.Context, prompt models.AnalysisPrompt) (models.AnalysisResult, error) {
	if g.generator == nil {
		return nil, authConfigError("missing gemini api key")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.logger.Debug("gemini generate content request",
		zap.String("model", g.modelName),
		zap.String("prompt_preview", logger.TruncateForLog(PromptText(prompt), 200)),
	)

	resp, err := g.generator.GenerateContent(ctx, g.modelName, prompt.Contents, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, upstreamTimeout(err)
		}
		return nil, upstreamError(0, "gemini generate content failed", err)
	}

	if resp == nil {
		return nil, upstreamError(0, "gemini returned an empty response", nil)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, internalError("failed to encode gemini response", err)
	}

	g.logger.Debug("gemini generate content response",
		zap.String("model", g.modelName),
		zap.Int("candidates", len(resp.Candidates)),
	)

	return raw, nil
}
