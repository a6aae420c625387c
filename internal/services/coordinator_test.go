package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/store"
)

func TestSubmitFailingScoreStartsCooldown(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{65}})
	in := h.start(t)
	require.Equal(t, 1, in.AttemptCount)

	res, err := h.coordinator.SubmitTranscript(context.Background(), in.ID, "u1", sampleTranscript())
	require.NoError(t, err)

	want := h.clock.Now().Add(7 * 24 * time.Hour)
	assert.True(t, res.RetakeEligibility.Required)
	assert.Equal(t, 2, res.RetakeEligibility.AttemptsRemaining)
	require.NotNil(t, res.RetakeEligibility.AvailableDate)
	assert.WithinDuration(t, want, *res.RetakeEligibility.AvailableDate, time.Second)
	assert.Equal(t, FeedbackID(in.ID, 1), res.Feedback.ID)

	got, err := h.interviews.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.FeedbackID)
	assert.Equal(t, res.Feedback.ID, *got.FeedbackID)
	require.NotNil(t, got.NextRetakeDate)
	assert.WithinDuration(t, want, *got.NextRetakeDate, time.Second)
	assert.Len(t, got.Transcript, 2)

	rows := h.feedbackFor(t, in.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsLatest)
	assert.Equal(t, 65, rows[0].CategoryScores.Data().Technical)
	assert.Contains(t, rows[0].Transcript, "user: A send only blocks")
}

func TestSubmitPassingScoreHasNoCooldown(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{70}})
	in := h.start(t)

	res, err := h.coordinator.SubmitTranscript(context.Background(), in.ID, "u1", sampleTranscript())
	require.NoError(t, err)
	assert.False(t, res.RetakeEligibility.Required)
	assert.Nil(t, res.RetakeEligibility.AvailableDate)

	got, err := h.interviews.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRetakeDate)
}

func TestSubmitKeepsExactlyOneLatestFeedback(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{40, 45, 50}}, func(c *config.InterviewConfig) { c.MaxAttempts = 5 })
	in := h.start(t)
	ctx := context.Background()

	var last *models.FeedbackResult
	for i := 0; i < 3; i++ {
		res, err := h.coordinator.SubmitTranscript(ctx, in.ID, "u1", retakeTranscript(i))
		require.NoError(t, err, "submission %d", i+1)
		last = res
		h.clock.Advance(h.cfg.Cooldown + time.Minute)
	}

	rows := h.feedbackFor(t, in.ID)
	require.Len(t, rows, 3)
	latest := 0
	for i, fb := range rows {
		assert.Equal(t, i+1, fb.AttemptCount)
		if fb.IsLatest {
			latest++
			assert.Equal(t, last.Feedback.ID, fb.ID)
		}
	}
	assert.Equal(t, 1, latest)
	assert.Equal(t, 2, last.RetakeEligibility.AttemptsRemaining)

	got, err := h.interviews.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AttemptCount)
	assert.Equal(t, last.Feedback.ID, *got.FeedbackID)
}

func TestRescoringRespectsCooldown(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{40}})
	in := h.start(t)
	ctx := context.Background()

	_, err := h.coordinator.SubmitTranscript(ctx, in.ID, "u1", sampleTranscript())
	require.NoError(t, err)

	_, err = h.coordinator.SubmitTranscript(ctx, in.ID, "u1", retakeTranscript(1))
	assert.ErrorIs(t, err, apperrors.ErrRetakeCooldown)
	assert.Equal(t, 1, h.assessor.calls)
}

func TestResubmittingScoredTranscriptReturnsStoredResult(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{40}})
	in := h.start(t)
	ctx := context.Background()

	first, err := h.coordinator.SubmitTranscript(ctx, in.ID, "u1", sampleTranscript())
	require.NoError(t, err)

	// the response was lost and the client sends the same request again
	again, err := h.coordinator.SubmitTranscript(ctx, in.ID, "u1", sampleTranscript())
	require.NoError(t, err)
	assert.Equal(t, first.Feedback.ID, again.Feedback.ID)
	assert.Equal(t, first.RetakeEligibility.AttemptsRemaining, again.RetakeEligibility.AttemptsRemaining)
	require.NotNil(t, again.RetakeEligibility.AvailableDate)
	assert.WithinDuration(t, *first.RetakeEligibility.AvailableDate, *again.RetakeEligibility.AvailableDate, time.Second)
	assert.Equal(t, 1, h.assessor.calls)
	assert.Len(t, h.feedbackFor(t, in.ID), 1)

	passing := newHarness(t, &fakeAssessor{scores: []int{85}})
	done := passing.start(t)
	_, err = passing.coordinator.SubmitTranscript(ctx, done.ID, "u1", sampleTranscript())
	require.NoError(t, err)
	replayed, err := passing.coordinator.SubmitTranscript(ctx, done.ID, "u1", sampleTranscript())
	require.NoError(t, err)
	assert.False(t, replayed.RetakeEligibility.Required)
	assert.Equal(t, 1, passing.assessor.calls)
}

func TestFailedCommitLeavesInterviewUnchanged(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{55}})
	in := h.start(t)
	h.store.commitErr = fmt.Errorf("commit batch: %w", store.ErrUnavailable)

	_, err := h.coordinator.SubmitTranscript(context.Background(), in.ID, "u1", sampleTranscript())
	require.ErrorIs(t, err, apperrors.ErrStoreTransient)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	got, err := h.interviews.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewPending, got.Status)
	assert.Nil(t, got.FeedbackID)
	assert.Equal(t, in.AttemptCount, got.AttemptCount)
	assert.Empty(t, h.feedbackFor(t, in.ID))
	assert.Equal(t, []string{models.CollectionFeedback + "/" + FeedbackID(in.ID, 1)}, h.store.deletes)
}

func TestCommitReportedFailedButApplied(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{90}})
	in := h.start(t)
	h.store.commitErr = errors.New("connection reset after commit")
	h.store.landThenFail = true

	res, err := h.coordinator.SubmitTranscript(context.Background(), in.ID, "u1", sampleTranscript())
	require.NoError(t, err)
	assert.Equal(t, 90, res.Feedback.TotalScore)
	assert.Empty(t, h.store.deletes)
	assert.Len(t, h.feedbackFor(t, in.ID), 1)
}

// staleInterviews serves one snapshot from GetByID before delegating, which
// reproduces a retry that read the interview before the first commit landed.
type staleInterviews struct {
	repositories.InterviewRepository
	snapshot *models.Interview
	served   bool
}

func (s *staleInterviews) GetByID(ctx context.Context, id string) (*models.Interview, error) {
	if !s.served {
		s.served = true
		cp := *s.snapshot
		return &cp, nil
	}
	return s.InterviewRepository.GetByID(ctx, id)
}

func TestRetriedSubmissionReplaysStoredFeedback(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{60}})
	in := h.start(t)
	ctx := context.Background()

	snapshot, err := h.interviews.GetByID(ctx, in.ID)
	require.NoError(t, err)

	first, err := h.coordinator.SubmitTranscript(ctx, in.ID, "u1", sampleTranscript())
	require.NoError(t, err)

	retry := newFeedbackCoordinator(h.store, &staleInterviews{InterviewRepository: h.interviews, snapshot: snapshot},
		h.feedback, h.assessor, h.cfg, zaptest.NewLogger(t), h.clock.Now)
	again, err := retry.SubmitTranscript(ctx, in.ID, "u1", sampleTranscript())
	require.NoError(t, err)

	assert.Equal(t, first.Feedback.ID, again.Feedback.ID)
	assert.Equal(t, first.RetakeEligibility.AttemptsRemaining, again.RetakeEligibility.AttemptsRemaining)
	require.NotNil(t, again.RetakeEligibility.AvailableDate)
	assert.WithinDuration(t, *first.RetakeEligibility.AvailableDate, *again.RetakeEligibility.AvailableDate, time.Second)
	assert.Len(t, h.feedbackFor(t, in.ID), 1)
}

func TestSubmitValidationHappensBeforeIO(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{80}})

	_, err := h.coordinator.SubmitTranscript(context.Background(), "whatever", "u1", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.coordinator.SubmitTranscript(context.Background(), "whatever", "u1", []models.TranscriptEntry{{Role: "user", Content: ""}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, h.assessor.calls)
}

func TestSubmitUnknownOrForeignInterviewIsNotFound(t *testing.T) {
	h := newHarness(t, &fakeAssessor{scores: []int{80}})
	in := h.start(t)

	_, err := h.coordinator.SubmitTranscript(context.Background(), "missing", "u1", sampleTranscript())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.coordinator.SubmitTranscript(context.Background(), in.ID, "intruder", sampleTranscript())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, h.assessor.calls)
}

func TestAssessmentFailureChangesNothing(t *testing.T) {
	h := newHarness(t, &fakeAssessor{err: errors.New("model overloaded")})
	in := h.start(t)

	_, err := h.coordinator.SubmitTranscript(context.Background(), in.ID, "u1", sampleTranscript())
	assert.ErrorIs(t, err, apperrors.ErrUpstream)

	got, err := h.interviews.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewPending, got.Status)
	assert.Nil(t, got.FeedbackID)
	assert.Empty(t, h.feedbackFor(t, in.ID))
}

func TestSubmitSurvivesCallerCancellationAfterScoring(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, &fakeAssessor{scores: []int{75}})
	in := h.start(t)

	// the assessor returns normally, then the caller goes away before the commit
	h.coordinator.assessor = cancelAfterScoring{AssessmentClient: h.assessor, cancel: cancel}

	_, err := h.coordinator.SubmitTranscript(ctx, in.ID, "u1", sampleTranscript())
	require.NoError(t, err)

	got, err := h.interviews.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, got.Status)
}

type cancelAfterScoring struct {
	AssessmentClient
	cancel context.CancelFunc
}

func (c cancelAfterScoring) ScoreTranscript(ctx context.Context, transcript string, ac AssessmentContext) (*models.ScoreReport, error) {
	report, err := c.AssessmentClient.ScoreTranscript(ctx, transcript, ac)
	c.cancel()
	return report, err
}

func TestFeedbackIDIsDeterministic(t *testing.T) {
	assert.Equal(t, FeedbackID("iv-1", 2), FeedbackID("iv-1", 2))
	assert.NotEqual(t, FeedbackID("iv-1", 1), FeedbackID("iv-1", 2))
	assert.NotEqual(t, FeedbackID("iv-1", 1), FeedbackID("iv-2", 1))
}
