package services

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/genai"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/store"
)

type fakeGemini struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	embedErr  error
}

func (f *fakeGemini) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeGemini) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

func (f *fakeGemini) GenerateJSONWithRetry(ctx context.Context, prompt string, schema *genai.Schema, temperature float32, maxRetries int) (string, error) {
	return f.GenerateJSON(ctx, prompt, schema, temperature)
}

// fakeAssessor returns scores in order, repeating the last one.
type fakeAssessor struct {
	mu     sync.Mutex
	scores []int
	err    error
	calls  int
}

func (f *fakeAssessor) ScoreTranscript(ctx context.Context, transcript string, ac AssessmentContext) (*models.ScoreReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	score := f.scores[0]
	if len(f.scores) > 1 {
		f.scores = f.scores[1:]
	}
	return &models.ScoreReport{
		TotalScore: score,
		CategoryScores: models.CategoryScores{
			Communication: score, Technical: score, ProblemSolving: score, CulturalFit: score, Confidence: score,
		},
		Strengths:           []string{"clear"},
		AreasForImprovement: []string{"depth"},
		FinalAssessment:     "ok",
	}, nil
}

type fakeQuestions struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeQuestions) GenerateQuestions(ctx context.Context, course *models.Course) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8"}, nil
}

type fakeRetriever struct {
	results []SearchResult
	err     error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, courseID, query string) ([]SearchResult, error) {
	return f.results, f.err
}

type fakeCourses struct {
	courses map[string]*models.Course
}

func (f *fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, apperrors.NotFound("course %s not found", id)
}

func (f *fakeCourses) List(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	for _, c := range f.courses {
		out = append(out, *c)
	}
	return out, nil
}

// failingCommitStore wraps a real store and fails Commit with commitErr.
// When landThenFail is set the batch is applied before the error is returned.
type failingCommitStore struct {
	store.DocumentStore
	commitErr    error
	landThenFail bool
	deletes      []string
}

func (s *failingCommitStore) Commit(ctx context.Context, ops ...store.Operation) error {
	if s.commitErr == nil {
		return s.DocumentStore.Commit(ctx, ops...)
	}
	if s.landThenFail {
		if err := s.DocumentStore.Commit(ctx, ops...); err != nil {
			return err
		}
	}
	return s.commitErr
}

func (s *failingCommitStore) Delete(ctx context.Context, collection, id string) error {
	s.deletes = append(s.deletes, collection+"/"+id)
	return s.DocumentStore.Delete(ctx, collection, id)
}
