package repositories

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/store"
)

type FeedbackRepository interface {
	// GetByID returns NotFound for feedback owned by someone else so that
	// callers cannot probe for foreign ids.
	GetByID(ctx context.Context, id, userID string) (*models.Feedback, error)
	ListByUser(ctx context.Context, userID string) ([]models.Feedback, error)
}

type feedbackRepository struct {
	store store.DocumentStore
	log   *zap.Logger
}

func NewFeedbackRepository(s store.DocumentStore, log *zap.Logger) FeedbackRepository {
	return &feedbackRepository{store: s, log: log.Named("feedback")}
}

// GetByID implements FeedbackRepository.
func (r *feedbackRepository) GetByID(ctx context.Context, id, userID string) (*models.Feedback, error) {
	var fb models.Feedback
	if err := r.store.Get(ctx, models.CollectionFeedback, id, &fb); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("feedback %s not found", id)
		}
		return nil, translate("failed to read feedback", err)
	}

	if fb.UserID != userID {
		r.log.Warn("feedback requested by non-owner",
			zap.String("feedback_id", id),
			zap.String("user_id", userID),
		)
		return nil, apperrors.NotFound("feedback %s not found", id)
	}

	if err := fb.Validate(); err != nil {
		return nil, apperrors.DataIntegrity("malformed feedback document", err)
	}
	return &fb, nil
}

// ListByUser implements FeedbackRepository.
func (r *feedbackRepository) ListByUser(ctx context.Context, userID string) ([]models.Feedback, error) {
	var rows []models.Feedback
	err := r.store.Query(ctx, models.CollectionFeedback, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID)},
		OrderBy: "created_at",
		Desc:    true,
	}, &rows)
	if err != nil {
		return nil, translate("failed to list feedback", err)
	}
	return rows, nil
}
