package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/store"
	"learnpath/interview-api/internal/testhelpers"
)

func setup(t *testing.T) (store.DocumentStore, repositories.InterviewRepository, repositories.FeedbackRepository) {
	t.Helper()
	s := store.NewGormStore(testhelpers.SetupTestDB(t))
	log := zaptest.NewLogger(t)
	return s, repositories.NewInterviewRepository(s, log), repositories.NewFeedbackRepository(s, log)
}

func TestCreateAndGetPending(t *testing.T) {
	_, interviews, _ := setup(t)
	ctx := context.Background()

	none, err := interviews.GetPending(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Nil(t, none)

	created, err := interviews.Create(ctx, repositories.NewInterview{
		CourseID:     "c1",
		UserID:       "u1",
		Questions:    []string{"q1", "q2"},
		AttemptCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InterviewPending, created.Status)
	assert.Nil(t, created.FeedbackID)
	assert.Empty(t, created.Transcript)

	pending, err := interviews.GetPending(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, created.ID, pending.ID)
	assert.Equal(t, []string{"q1", "q2"}, []string(pending.Questions))
}

func TestCreateSecondPendingIsConflict(t *testing.T) {
	_, interviews, _ := setup(t)
	ctx := context.Background()

	req := repositories.NewInterview{CourseID: "c1", UserID: "u1", Questions: []string{"q"}, AttemptCount: 1}
	_, err := interviews.Create(ctx, req)
	require.NoError(t, err)

	_, err = interviews.Create(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreateRejectsNonPositiveAttempt(t *testing.T) {
	_, interviews, _ := setup(t)

	_, err := interviews.Create(context.Background(), repositories.NewInterview{CourseID: "c1", UserID: "u1"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetByIDMissingIsNotFound(t *testing.T) {
	_, interviews, _ := setup(t)

	_, err := interviews.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetByIDMalformedIsDataIntegrity(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	now := time.Now().UTC()
	bad := &models.Interview{
		CourseID:     "c1",
		UserID:       "u1",
		Status:       models.InterviewCompleted,
		AttemptCount: 1,
		LastAttempt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.Insert(ctx, models.CollectionInterviews, bad)
	require.NoError(t, err)

	_, err = interviews.GetByID(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
}

func TestGetLatestAttachesOwnedFeedback(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	in := completedInterview(t, s, "c1", "u1", "fb-1", time.Now().UTC())
	_, err := s.Insert(ctx, models.CollectionFeedback, &models.Feedback{
		ID: "fb-1", InterviewID: in.ID, UserID: "u1", AttemptCount: 1, TotalScore: 82, IsLatest: true, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	latest, err := interviews.GetLatest(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.NotNil(t, latest.LatestScore())
	assert.Equal(t, 82, *latest.LatestScore())
}

func TestGetLatestIgnoresForeignFeedback(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	in := completedInterview(t, s, "c1", "u1", "fb-x", time.Now().UTC())
	_, err := s.Insert(ctx, models.CollectionFeedback, &models.Feedback{
		ID: "fb-x", InterviewID: in.ID, UserID: "someone-else", AttemptCount: 1, TotalScore: 99, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	latest, err := interviews.GetLatest(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Nil(t, latest.Feedback)
}

func TestGetLatestIgnoresFeedbackOfAnotherInterview(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	in := completedInterview(t, s, "c1", "u1", "fb-x", time.Now().UTC())
	_, err := s.Insert(ctx, models.CollectionFeedback, &models.Feedback{
		ID: "fb-x", InterviewID: "other-interview", UserID: "u1", AttemptCount: 1, TotalScore: 99, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	latest, err := interviews.GetLatest(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, in.ID, latest.ID)
	assert.Nil(t, latest.Feedback)
}

func TestGetLatestMalformedFeedbackIsDataIntegrity(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	in := completedInterview(t, s, "c1", "u1", "fb-x", time.Now().UTC())
	_, err := s.Insert(ctx, models.CollectionFeedback, &models.Feedback{
		ID: "fb-x", InterviewID: in.ID, UserID: "u1", AttemptCount: 1, TotalScore: 140, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	_, err = interviews.GetLatest(ctx, "c1", "u1")
	assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
}

func TestGetLatestPicksNewest(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	base := time.Now().UTC()
	completedInterview(t, s, "c1", "u1", "fb-old", base.Add(-time.Hour))
	newer := completedInterview(t, s, "c1", "u1", "fb-new", base)

	latest, err := interviews.GetLatest(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	none, err := interviews.GetLatest(ctx, "c2", "u1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateRetakeArchivesPrevious(t *testing.T) {
	s, interviews, _ := setup(t)
	ctx := context.Background()

	prev := completedInterview(t, s, "c1", "u1", "fb-1", time.Now().UTC().Add(-time.Hour))

	next, err := interviews.Create(ctx, repositories.NewInterview{
		CourseID:            "c1",
		UserID:              "u1",
		Questions:           []string{"q"},
		AttemptCount:        2,
		PreviousInterviewID: prev.ID,
	})
	require.NoError(t, err)

	old, err := interviews.GetByID(ctx, prev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewArchived, old.Status)
	assert.NotNil(t, old.ArchivedAt)

	list, err := interviews.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, next.ID, list[0].ID)
}

func completedInterview(t *testing.T, s store.DocumentStore, courseID, userID, feedbackID string, at time.Time) *models.Interview {
	t.Helper()
	in := &models.Interview{
		CourseID:     courseID,
		UserID:       userID,
		Status:       models.InterviewCompleted,
		AttemptCount: 1,
		Questions:    []string{"q"},
		FeedbackID:   &feedbackID,
		LastAttempt:  at,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	_, err := s.Insert(context.Background(), models.CollectionInterviews, in)
	require.NoError(t, err)
	return in
}
