package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
)

const assessmentTemperature = 0.2

type AssessmentContext struct {
	InterviewID string
	UserID      string
	CourseID    string
}

// AssessmentClient scores a flattened transcript. Any failure, including a
// report that does not match the schema, is returned as an Upstream error.
type AssessmentClient interface {
	ScoreTranscript(ctx context.Context, transcript string, ac AssessmentContext) (*models.ScoreReport, error)
}

type geminiAssessor struct {
	gemini    GeminiService
	courses   repositories.CourseRepository
	retriever CourseContextRetriever
	prompts   *PromptBuilder
	log       *zap.Logger
}

// NewAssessmentClient builds the Gemini-backed scorer. retriever may be nil
// when the vector index is disabled.
func NewAssessmentClient(
	gemini GeminiService,
	courses repositories.CourseRepository,
	retriever CourseContextRetriever,
	log *zap.Logger,
) AssessmentClient {
	return &geminiAssessor{
		gemini:    gemini,
		courses:   courses,
		retriever: retriever,
		prompts:   NewPromptBuilder(),
		log:       log.Named("assessment"),
	}
}

// ScoreTranscript implements AssessmentClient.
func (a *geminiAssessor) ScoreTranscript(ctx context.Context, transcript string, ac AssessmentContext) (*models.ScoreReport, error) {
	courseTitle := ac.CourseID
	if course, err := a.courses.FindByID(ctx, ac.CourseID); err == nil {
		courseTitle = course.Title
	} else {
		a.log.Warn("course lookup failed, scoring without title",
			zap.String("course_id", ac.CourseID),
			zap.Error(err),
		)
	}

	prompt := a.prompts.BuildAssessmentPrompt(transcript, courseTitle, a.courseContext(ctx, ac.CourseID, courseTitle, transcript))

	// Not retried: the caller resubmits the whole transcript.
	raw, err := a.gemini.GenerateJSON(ctx, prompt, scoreReportSchema, assessmentTemperature)
	if err != nil {
		return nil, apperrors.Upstream("assessment call failed", err)
	}

	report, err := ParseScoreReport([]byte(raw))
	if err != nil {
		a.log.Warn("rejected malformed score report",
			zap.String("interview_id", ac.InterviewID),
			zap.Error(err),
		)
		return nil, apperrors.Upstream("assessment returned an invalid report", err)
	}
	return report, nil
}

// courseContext degrades to no context on any retrieval failure.
func (a *geminiAssessor) courseContext(ctx context.Context, courseID, courseTitle, transcript string) string {
	if a.retriever == nil {
		return FormatRAGContext(nil)
	}

	results, err := a.retriever.Retrieve(ctx, courseID, a.prompts.BuildRetrievalQuery(courseTitle, transcript))
	if err != nil {
		a.log.Warn("course context retrieval failed",
			zap.String("course_id", courseID),
			zap.Error(err),
		)
		return FormatRAGContext(nil)
	}
	return FormatRAGContext(results)
}

// rawScoreReport uses pointers so a missing field is distinguishable from zero.
type rawScoreReport struct {
	TotalScore          *int               `json:"totalScore"`
	CategoryScores      *rawCategoryScores `json:"categoryScores"`
	Strengths           *[]string          `json:"strengths"`
	AreasForImprovement *[]string          `json:"areasForImprovement"`
	FinalAssessment     *string            `json:"finalAssessment"`
}

type rawCategoryScores struct {
	Communication  *int `json:"communication"`
	Technical      *int `json:"technical"`
	ProblemSolving *int `json:"problemSolving"`
	CulturalFit    *int `json:"culturalFit"`
	Confidence     *int `json:"confidence"`
}

// ParseScoreReport decodes and validates an assessment response. It fails
// closed: unknown fields, missing fields, non-integer scores and scores
// outside [0,100] are all rejected.
func ParseScoreReport(data []byte) (*models.ScoreReport, error) {
	var raw rawScoreReport
	if err := decodeStrict(data, &raw); err != nil {
		return nil, err
	}

	if raw.CategoryScores == nil {
		return nil, errors.New("missing field categoryScores")
	}
	cs := raw.CategoryScores

	scores := []struct {
		name  string
		value *int
	}{
		{"totalScore", raw.TotalScore},
		{"categoryScores.communication", cs.Communication},
		{"categoryScores.technical", cs.Technical},
		{"categoryScores.problemSolving", cs.ProblemSolving},
		{"categoryScores.culturalFit", cs.CulturalFit},
		{"categoryScores.confidence", cs.Confidence},
	}
	for _, s := range scores {
		if s.value == nil {
			return nil, fmt.Errorf("missing field %s", s.name)
		}
		if *s.value < 0 || *s.value > 100 {
			return nil, fmt.Errorf("%s = %d outside [0,100]", s.name, *s.value)
		}
	}

	switch {
	case raw.Strengths == nil:
		return nil, errors.New("missing field strengths")
	case raw.AreasForImprovement == nil:
		return nil, errors.New("missing field areasForImprovement")
	case raw.FinalAssessment == nil || strings.TrimSpace(*raw.FinalAssessment) == "":
		return nil, errors.New("missing field finalAssessment")
	}

	return &models.ScoreReport{
		TotalScore: *raw.TotalScore,
		CategoryScores: models.CategoryScores{
			Communication:  *cs.Communication,
			Technical:      *cs.Technical,
			ProblemSolving: *cs.ProblemSolving,
			CulturalFit:    *cs.CulturalFit,
			Confidence:     *cs.Confidence,
		},
		Strengths:           *raw.Strengths,
		AreasForImprovement: *raw.AreasForImprovement,
		FinalAssessment:     *raw.FinalAssessment,
	}, nil
}

func decodeStrict(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

func scoreSchema() *genai.Schema {
	return &genai.Schema{
		Type:    genai.TypeInteger,
		Minimum: genai.Ptr[float64](0),
		Maximum: genai.Ptr[float64](100),
	}
}

var scoreReportSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"totalScore": scoreSchema(),
		"categoryScores": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"communication":  scoreSchema(),
				"technical":      scoreSchema(),
				"problemSolving": scoreSchema(),
				"culturalFit":    scoreSchema(),
				"confidence":     scoreSchema(),
			},
			Required: []string{"communication", "technical", "problemSolving", "culturalFit", "confidence"},
		},
		"strengths":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"areasForImprovement": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"finalAssessment":     {Type: genai.TypeString},
	},
	Required: []string{"totalScore", "categoryScores", "strengths", "areasForImprovement", "finalAssessment"},
}
