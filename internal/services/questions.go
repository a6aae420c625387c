package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/models"
)

const questionTemperature = 0.7

type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, course *models.Course) ([]string, error)
}

type geminiQuestionGenerator struct {
	gemini     GeminiService
	prompts    *PromptBuilder
	minCount   int
	maxCount   int
	maxRetries int
	log        *zap.Logger
}

func NewQuestionGenerator(gemini GeminiService, cfg config.InterviewConfig, log *zap.Logger) QuestionGenerator {
	return &geminiQuestionGenerator{
		gemini:     gemini,
		prompts:    NewPromptBuilder(),
		minCount:   cfg.MinQuestions,
		maxCount:   cfg.MaxQuestions,
		maxRetries: max(1, cfg.QuestionRetryAttempts),
		log:        log.Named("questions"),
	}
}

// GenerateQuestions implements QuestionGenerator.
func (g *geminiQuestionGenerator) GenerateQuestions(ctx context.Context, course *models.Course) ([]string, error) {
	prompt := g.prompts.BuildQuestionPrompt(course, g.minCount, g.maxCount)

	raw, err := g.gemini.GenerateJSONWithRetry(ctx, prompt, questionListSchema(g.minCount, g.maxCount), questionTemperature, g.maxRetries)
	if err != nil {
		return nil, apperrors.Upstream("question generation failed", err)
	}

	questions, err := ParseQuestions([]byte(raw), g.minCount, g.maxCount)
	if err != nil {
		g.log.Warn("rejected malformed question list",
			zap.String("course_id", course.ID),
			zap.Error(err),
		)
		return nil, apperrors.Upstream("question generation returned an invalid list", err)
	}
	return questions, nil
}

type rawQuestionList struct {
	Questions *[]string `json:"questions"`
}

// ParseQuestions decodes {"questions": [...]} and checks that the list holds
// between minCount and maxCount non-blank entries.
func ParseQuestions(data []byte, minCount, maxCount int) ([]string, error) {
	var raw rawQuestionList
	if err := decodeStrict(data, &raw); err != nil {
		return nil, err
	}
	if raw.Questions == nil {
		return nil, errors.New("missing field questions")
	}

	questions := make([]string, 0, len(*raw.Questions))
	for i, q := range *raw.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, fmt.Errorf("question %d is empty", i)
		}
		questions = append(questions, q)
	}

	if n := len(questions); n < minCount || n > maxCount {
		return nil, fmt.Errorf("got %d questions, want between %d and %d", n, minCount, maxCount)
	}
	return questions, nil
}

func questionListSchema(minCount, maxCount int) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: genai.Ptr(int64(minCount)),
				MaxItems: genai.Ptr(int64(maxCount)),
			},
		},
		Required: []string{"questions"},
	}
}
