package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/models"
)

const validReport = `{
  "totalScore": 72,
  "categoryScores": {"communication": 80, "technical": 70, "problemSolving": 65, "culturalFit": 75, "confidence": 70},
  "strengths": ["explains trade-offs"],
  "areasForImprovement": ["error handling"],
  "finalAssessment": "Solid grasp of the material."
}`

func TestParseScoreReport(t *testing.T) {
	report, err := ParseScoreReport([]byte(validReport))
	require.NoError(t, err)
	assert.Equal(t, 72, report.TotalScore)
	assert.Equal(t, 65, report.CategoryScores.ProblemSolving)
	assert.Equal(t, []string{"error handling"}, report.AreasForImprovement)
}

func TestParseScoreReportRejects(t *testing.T) {
	tests := map[string]string{
		"not json":          `score: 70`,
		"unknown field":     `{"totalScore": 70, "categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "x", "bonus": 1}`,
		"missing total":     `{"categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "x"}`,
		"missing category":  `{"totalScore": 70, "categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "x"}`,
		"score above range": `{"totalScore": 101, "categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "x"}`,
		"negative category": `{"totalScore": 70, "categoryScores": {"communication": -1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "x"}`,
		"fractional score":  `{"totalScore": 70.5, "categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "x"}`,
		"missing strengths": `{"totalScore": 70, "categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "areasForImprovement": [], "finalAssessment": "x"}`,
		"blank assessment":  `{"totalScore": 70, "categoryScores": {"communication": 1, "technical": 1, "problemSolving": 1, "culturalFit": 1, "confidence": 1}, "strengths": [], "areasForImprovement": [], "finalAssessment": "  "}`,
		"trailing data":     validReport + ` {}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScoreReport([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestAssessmentClientUsesCourseContext(t *testing.T) {
	gemini := &fakeGemini{responses: []string{validReport}}
	courses := &fakeCourses{courses: map[string]*models.Course{"c1": {ID: "c1", Title: "Distributed Systems"}}}
	retriever := &fakeRetriever{results: []SearchResult{{Text: "Raft elects a leader.", Score: 0.9}}}

	client := NewAssessmentClient(gemini, courses, retriever, zaptest.NewLogger(t))
	report, err := client.ScoreTranscript(context.Background(), "user: raft", AssessmentContext{InterviewID: "iv", UserID: "u1", CourseID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 72, report.TotalScore)

	require.Len(t, gemini.prompts, 1)
	assert.Contains(t, gemini.prompts[0], "Distributed Systems")
	assert.Contains(t, gemini.prompts[0], "Raft elects a leader.")
}

func TestAssessmentClientDegradesWithoutRetrieval(t *testing.T) {
	gemini := &fakeGemini{responses: []string{validReport}}
	retriever := &fakeRetriever{err: errors.New("qdrant down")}

	client := NewAssessmentClient(gemini, &fakeCourses{}, retriever, zaptest.NewLogger(t))
	_, err := client.ScoreTranscript(context.Background(), "user: hi", AssessmentContext{CourseID: "c-missing"})
	require.NoError(t, err)
	assert.Contains(t, gemini.prompts[0], "No relevant context found.")
}

func TestAssessmentClientFailuresAreUpstream(t *testing.T) {
	log := zaptest.NewLogger(t)

	client := NewAssessmentClient(&fakeGemini{err: errors.New("quota")}, &fakeCourses{}, nil, log)
	_, err := client.ScoreTranscript(context.Background(), "user: hi", AssessmentContext{})
	assert.ErrorIs(t, err, apperrors.ErrUpstream)

	client = NewAssessmentClient(&fakeGemini{responses: []string{`{"totalScore": 500}`}}, &fakeCourses{}, nil, log)
	_, err = client.ScoreTranscript(context.Background(), "user: hi", AssessmentContext{})
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestParseQuestions(t *testing.T) {
	got, err := ParseQuestions([]byte(`{"questions": [" a ", "b", "c"]}`), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	for name, body := range map[string]string{
		"too few":     `{"questions": ["a"]}`,
		"too many":    `{"questions": ["a", "b", "c", "d"]}`,
		"blank entry": `{"questions": ["a", " "]}`,
		"missing":     `{}`,
		"bare array":  `["a", "b"]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuestions([]byte(body), 2, 3)
			assert.Error(t, err)
		})
	}
}

func TestQuestionGenerator(t *testing.T) {
	cfg := config.DefaultInterviewConfig()
	course := &models.Course{ID: "c1", Title: "Go", Modules: []models.Module{{Title: "Basics"}}}

	gemini := &fakeGemini{responses: []string{`{"questions": ["1","2","3","4","5","6","7","8"]}`}}
	questions, err := NewQuestionGenerator(gemini, cfg, zaptest.NewLogger(t)).GenerateQuestions(context.Background(), course)
	require.NoError(t, err)
	assert.Len(t, questions, 8)
	assert.Contains(t, gemini.prompts[0], `Module: "Basics"`)

	gemini = &fakeGemini{responses: []string{`{"questions": []}`}}
	_, err = NewQuestionGenerator(gemini, cfg, zaptest.NewLogger(t)).GenerateQuestions(context.Background(), course)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}
