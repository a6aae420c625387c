package repositories

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/store"
)

type InterviewRepository interface {
	GetByID(ctx context.Context, id string) (*models.Interview, error)
	GetPending(ctx context.Context, courseID, userID string) (*models.Interview, error)
	GetLatest(ctx context.Context, courseID, userID string) (*models.Interview, error)
	Create(ctx context.Context, in NewInterview) (*models.Interview, error)
	ListByUser(ctx context.Context, userID string) ([]models.Interview, error)
}

type NewInterview struct {
	CourseID            string
	UserID              string
	Questions           []string
	AttemptCount        int
	PreviousInterviewID string
}

type interviewRepository struct {
	store store.DocumentStore
	log   *zap.Logger
	now   func() time.Time
}

func NewInterviewRepository(s store.DocumentStore, log *zap.Logger) InterviewRepository {
	return &interviewRepository{
		store: s,
		log:   log.Named("interviews"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GetByID implements InterviewRepository.
func (r *interviewRepository) GetByID(ctx context.Context, id string) (*models.Interview, error) {
	var in models.Interview
	if err := r.store.Get(ctx, models.CollectionInterviews, id, &in); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("interview %s not found", id)
		}
		return nil, translate("failed to read interview", err)
	}
	if err := in.Validate(); err != nil {
		return nil, apperrors.DataIntegrity("malformed interview document", err)
	}
	return &in, nil
}

// GetPending implements InterviewRepository. A nil interview means none is in progress.
func (r *interviewRepository) GetPending(ctx context.Context, courseID, userID string) (*models.Interview, error) {
	var rows []models.Interview
	err := r.store.Query(ctx, models.CollectionInterviews, store.Query{
		Filters: []store.Filter{
			store.Eq("course_id", courseID),
			store.Eq("user_id", userID),
			store.Eq("status", models.InterviewPending),
		},
		Limit: 1,
	}, &rows)
	if err != nil {
		return nil, translate("failed to query pending interview", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := rows[0].Validate(); err != nil {
		return nil, apperrors.DataIntegrity("malformed interview document", err)
	}
	return &rows[0], nil
}

// GetLatest implements InterviewRepository. The latest feedback is attached
// when the interview points at one recorded for it and owned by the same user.
func (r *interviewRepository) GetLatest(ctx context.Context, courseID, userID string) (*models.Interview, error) {
	var rows []models.Interview
	err := r.store.Query(ctx, models.CollectionInterviews, store.Query{
		Filters: []store.Filter{
			store.Eq("course_id", courseID),
			store.Eq("user_id", userID),
		},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   1,
	}, &rows)
	if err != nil {
		return nil, translate("failed to query latest interview", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	in := &rows[0]
	if err := in.Validate(); err != nil {
		return nil, apperrors.DataIntegrity("malformed interview document", err)
	}

	if in.FeedbackID == nil {
		return in, nil
	}

	var fb models.Feedback
	err = r.store.Get(ctx, models.CollectionFeedback, *in.FeedbackID, &fb)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.log.Warn("interview references missing feedback",
			zap.String("interview_id", in.ID),
			zap.String("feedback_id", *in.FeedbackID),
		)
		return in, nil
	case err != nil:
		return nil, translate("failed to read interview feedback", err)
	}

	if fb.UserID != userID || fb.InterviewID != in.ID {
		r.log.Warn("feedback does not belong to interview, ignoring reference",
			zap.String("interview_id", in.ID),
			zap.String("feedback_id", fb.ID),
			zap.String("feedback_interview_id", fb.InterviewID),
		)
		return in, nil
	}
	if err := fb.Validate(); err != nil {
		return nil, apperrors.DataIntegrity("malformed feedback document", err)
	}

	in.Feedback = &fb
	return in, nil
}

// Create implements InterviewRepository. A second pending interview for the
// same course and user is rejected by the store and reported as a conflict.
func (r *interviewRepository) Create(ctx context.Context, req NewInterview) (*models.Interview, error) {
	if req.AttemptCount < 1 {
		return nil, apperrors.Validation("attempt count must be positive, got %d", req.AttemptCount)
	}

	now := r.now()
	in := &models.Interview{
		CourseID:     req.CourseID,
		UserID:       req.UserID,
		Status:       models.InterviewPending,
		AttemptCount: req.AttemptCount,
		Questions:    req.Questions,
		Transcript:   []models.TranscriptEntry{},
		LastAttempt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.store.Insert(ctx, models.CollectionInterviews, in); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperrors.Conflict("a pending interview already exists", err)
		}
		return nil, translate("failed to create interview", err)
	}

	if req.AttemptCount > 1 {
		r.archiveOthers(ctx, in, now)
	}

	r.log.Info("interview created",
		zap.String("interview_id", in.ID),
		zap.String("course_id", in.CourseID),
		zap.String("user_id", in.UserID),
		zap.Int("attempt_count", in.AttemptCount),
		zap.String("previous_interview_id", req.PreviousInterviewID),
	)
	return in, nil
}

// archiveOthers is cleanup of stale rows; the new interview stands even if it fails.
func (r *interviewRepository) archiveOthers(ctx context.Context, in *models.Interview, now time.Time) {
	err := r.store.Commit(ctx, store.UpdateWhereOp{
		Collection: models.CollectionInterviews,
		Filters: []store.Filter{
			store.Eq("course_id", in.CourseID),
			store.Eq("user_id", in.UserID),
			store.Ne("id", in.ID),
			store.Ne("status", models.InterviewArchived),
		},
		Fields: map[string]any{
			"status":      models.InterviewArchived,
			"archived_at": now,
			"updated_at":  now,
		},
	})
	if err != nil {
		r.log.Warn("failed to archive previous interviews",
			zap.String("interview_id", in.ID),
			zap.Error(err),
		)
	}
}

// ListByUser implements InterviewRepository.
func (r *interviewRepository) ListByUser(ctx context.Context, userID string) ([]models.Interview, error) {
	var rows []models.Interview
	err := r.store.Query(ctx, models.CollectionInterviews, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID)},
		OrderBy: "created_at",
		Desc:    true,
	}, &rows)
	if err != nil {
		return nil, translate("failed to list interviews", err)
	}

	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return nil, apperrors.DataIntegrity("malformed interview document", err)
		}
	}
	return rows, nil
}

// translate maps store sentinels into the application error taxonomy.
func translate(message string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &apperrors.Error{Kind: apperrors.KindNotFound, Message: message, Err: err}
	case errors.Is(err, store.ErrConflict):
		return apperrors.Conflict(message, err)
	default:
		return apperrors.StoreTransient(message, err)
	}
}
