package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/store"
	"learnpath/interview-api/internal/testhelpers"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	cfg         config.InterviewConfig
	clock       *testClock
	store       *failingCommitStore
	interviews  repositories.InterviewRepository
	feedback    repositories.FeedbackRepository
	courses     repositories.CourseRepository
	assessor    *fakeAssessor
	questions   *fakeQuestions
	coordinator *feedbackCoordinator
	lifecycle   *interviewLifecycle
}

func newHarness(t *testing.T, assessor *fakeAssessor, tweak ...func(*config.InterviewConfig)) *harness {
	t.Helper()

	cfg := config.DefaultInterviewConfig()
	for _, f := range tweak {
		f(&cfg)
	}

	log := zaptest.NewLogger(t)
	s := &failingCommitStore{DocumentStore: store.NewGormStore(testhelpers.SetupTestDB(t))}
	clock := newTestClock()

	interviews := repositories.NewInterviewRepository(s, log)
	feedback := repositories.NewFeedbackRepository(s, log)
	courses := repositories.NewCourseRepository(s)
	questions := &fakeQuestions{}

	_, err := s.Insert(context.Background(), models.CollectionCourses, &models.Course{ID: "c1", Title: "Go Concurrency"})
	require.NoError(t, err)

	coord := newFeedbackCoordinator(s, interviews, feedback, assessor, cfg, log, clock.Now)
	life := NewInterviewLifecycle(interviews, feedback, courses, questions, coord, cfg, log).(*interviewLifecycle)
	life.now = clock.Now

	return &harness{
		cfg:         cfg,
		clock:       clock,
		store:       s,
		interviews:  interviews,
		feedback:    feedback,
		courses:     courses,
		assessor:    assessor,
		questions:   questions,
		coordinator: coord,
		lifecycle:   life,
	}
}

// start creates or resumes the pending interview for c1/u1.
func (h *harness) start(t *testing.T) *models.Interview {
	t.Helper()
	resp, err := h.lifecycle.StartOrResumeInterview(context.Background(), "c1", "u1")
	require.NoError(t, err)
	return resp.Interview
}

func (h *harness) feedbackFor(t *testing.T, interviewID string) []models.Feedback {
	t.Helper()
	var rows []models.Feedback
	require.NoError(t, h.store.Query(context.Background(), models.CollectionFeedback, store.Query{
		Filters: []store.Filter{store.Eq("interview_id", interviewID)},
		OrderBy: "attempt_count",
	}, &rows))
	return rows
}

func sampleTranscript() []models.TranscriptEntry {
	return []models.TranscriptEntry{
		{Role: "assistant", Content: "How does a buffered channel differ from an unbuffered one?"},
		{Role: "user", Content: "A send only blocks when the buffer is full."},
	}
}

// retakeTranscript is a different answer for the n-th resubmission.
func retakeTranscript(n int) []models.TranscriptEntry {
	t := sampleTranscript()
	t[1].Content = fmt.Sprintf("%s Take %d.", t[1].Content, n)
	return t
}
