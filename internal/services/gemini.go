package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/metrics"
)

// maxEmbedChars roughly bounds an embedding input to the model's token limit.
const maxEmbedChars = 40000

var errEmptyResponse = errors.New("no text content in response")

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	// GenerateJSON asks for a response constrained to schema and returns the
	// raw JSON text. Callers still validate the result.
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error)
	GenerateJSONWithRetry(ctx context.Context, prompt string, schema *genai.Schema, temperature float32, maxRetries int) (string, error)
}

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	log        *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:     client,
		modelName:  cfg.Model,
		embedModel: cfg.EmbedModel,
		log:        log.Named("gemini"),
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) (_ []float32, err error) {
	started := time.Now()
	defer func() { metrics.ObserveUpstream("embed", started, err) }()

	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateJSON implements GeminiService.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (_ string, err error) {
	started := time.Now()
	defer func() { metrics.ObserveUpstream("generate", started, err) }()

	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		reason := ""
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		g.log.Warn("empty gemini response",
			zap.String("model", g.modelName),
			zap.String("finish_reason", reason),
		)
		return "", errEmptyResponse
	}

	g.log.Debug("gemini response received",
		zap.String("model", g.modelName),
		zap.Int("bytes", len(text)),
		zap.Duration("latency", time.Since(started)),
	)
	return text, nil
}

// GenerateJSONWithRetry implements GeminiService.
func (g *geminiService) GenerateJSONWithRetry(ctx context.Context, prompt string, schema *genai.Schema, temperature float32, maxRetries int) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := g.GenerateJSON(ctx, prompt, schema, temperature)
		if err == nil {
			return result, nil
		}

		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < maxRetries {
			g.log.Warn("gemini attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxRetries),
				zap.Error(err),
			)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}
