package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/metrics"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/store"
)

// feedbackNamespace seeds the deterministic feedback ids.
var feedbackNamespace = uuid.MustParse("b4f1a7c2-58d3-5e0a-9f6b-2c71d8e43a90")

// FeedbackID is the id of the feedback recorded for an interview's attempt.
// Retrying a commit for the same attempt therefore cannot duplicate it.
func FeedbackID(interviewID string, attemptCount int) string {
	return uuid.NewSHA1(feedbackNamespace, []byte(interviewID+":"+strconv.Itoa(attemptCount))).String()
}

type FeedbackCoordinator interface {
	SubmitTranscript(ctx context.Context, interviewID, userID string, transcript []models.TranscriptEntry) (*models.FeedbackResult, error)
}

type feedbackCoordinator struct {
	store      store.DocumentStore
	interviews repositories.InterviewRepository
	feedback   repositories.FeedbackRepository
	assessor   AssessmentClient
	policy     *RetakePolicy
	validate   *validator.Validate
	cfg        config.InterviewConfig
	log        *zap.Logger
	now        func() time.Time
}

func NewFeedbackCoordinator(
	s store.DocumentStore,
	interviews repositories.InterviewRepository,
	feedback repositories.FeedbackRepository,
	assessor AssessmentClient,
	cfg config.InterviewConfig,
	log *zap.Logger,
) FeedbackCoordinator {
	return newFeedbackCoordinator(s, interviews, feedback, assessor, cfg, log, func() time.Time { return time.Now().UTC() })
}

func newFeedbackCoordinator(
	s store.DocumentStore,
	interviews repositories.InterviewRepository,
	feedback repositories.FeedbackRepository,
	assessor AssessmentClient,
	cfg config.InterviewConfig,
	log *zap.Logger,
	now func() time.Time,
) *feedbackCoordinator {
	return &feedbackCoordinator{
		store:      s,
		interviews: interviews,
		feedback:   feedback,
		assessor:   assessor,
		policy:     NewRetakePolicy(cfg),
		validate:   NewValidator(),
		cfg:        cfg,
		log:        log.Named("coordinator"),
		now:        now,
	}
}

// SubmitTranscript implements FeedbackCoordinator. It scores the transcript
// and commits the feedback, the interview transition, the isLatest flip and
// any archiving as one batch.
func (c *feedbackCoordinator) SubmitTranscript(ctx context.Context, interviewID, userID string, transcript []models.TranscriptEntry) (*models.FeedbackResult, error) {
	if err := ValidateTranscript(c.validate, transcript); err != nil {
		return nil, err
	}
	text := FlattenTranscript(transcript)

	in, replay, err := c.loadForScoring(ctx, interviewID, userID, text)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	report, err := c.assessor.ScoreTranscript(ctx, text, AssessmentContext{
		InterviewID: in.ID,
		UserID:      userID,
		CourseID:    in.CourseID,
	})
	if err != nil {
		if apperrors.KindOf(err) == "" {
			err = apperrors.Upstream("assessment call failed", err)
		}
		return nil, err
	}

	now := c.now()
	requiresRetake := !c.policy.Passed(report.TotalScore)
	var cooldownEnd *time.Time
	if requiresRetake {
		end := now.Add(c.cfg.Cooldown)
		cooldownEnd = &end
	}

	// A first grading keeps the attempt number the interview was created
	// with; grading it again counts as a further attempt.
	newAttemptCount := in.AttemptCount
	if in.FeedbackID != nil {
		newAttemptCount++
	}

	fb := &models.Feedback{
		ID:                  FeedbackID(in.ID, newAttemptCount),
		InterviewID:         in.ID,
		UserID:              userID,
		AttemptCount:        newAttemptCount,
		TotalScore:          report.TotalScore,
		CategoryScores:      datatypes.NewJSONType(report.CategoryScores),
		Strengths:           report.Strengths,
		AreasForImprovement: report.AreasForImprovement,
		FinalAssessment:     report.FinalAssessment,
		IsLatest:            true,
		Transcript:          text,
		CreatedAt:           now,
	}

	ops := c.buildBatch(in, fb, transcript, cooldownEnd, now)

	// Scoring is done; the commit must not be abandoned halfway by a client disconnect.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CommitTimeout)
	defer cancel()

	if err := c.store.Commit(commitCtx, ops...); err != nil {
		return c.recoverCommit(commitCtx, in, fb, err)
	}

	metrics.ObserveCommit(metrics.CommitApplied)
	c.log.Info("feedback committed",
		zap.String("interview_id", in.ID),
		zap.String("feedback_id", fb.ID),
		zap.String("user_id", userID),
		zap.Int("attempt_count", newAttemptCount),
		zap.Int("total_score", fb.TotalScore),
		zap.Bool("requires_retake", requiresRetake),
	)
	return c.result(fb, cooldownEnd), nil
}

// loadForScoring reads the interview and rejects it before any assessment
// call is spent on it. Resending the transcript that produced the interview's
// current feedback returns that result instead.
func (c *feedbackCoordinator) loadForScoring(ctx context.Context, interviewID, userID, text string) (*models.Interview, *models.FeedbackResult, error) {
	in, err := c.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, nil, err
	}
	if in.UserID != userID {
		return nil, nil, apperrors.NotFound("interview %s not found", interviewID)
	}

	switch in.Status {
	case models.InterviewPending:
		return in, nil, nil
	case models.InterviewArchived:
		return nil, nil, apperrors.Conflict("interview is archived", nil)
	}

	fb, err := c.feedback.GetByID(ctx, *in.FeedbackID, userID)
	switch {
	case err == nil:
		in.Feedback = fb
	case errors.Is(err, apperrors.ErrNotFound):
		c.log.Warn("completed interview has no readable feedback",
			zap.String("interview_id", in.ID),
			zap.String("feedback_id", *in.FeedbackID),
		)
	default:
		return nil, nil, err
	}

	if fb != nil && fb.ID == FeedbackID(in.ID, in.AttemptCount) && fb.Transcript == text {
		metrics.ObserveCommit(metrics.CommitReplayed)
		c.log.Info("transcript already scored, returning stored result",
			zap.String("interview_id", in.ID),
			zap.String("feedback_id", fb.ID),
		)
		return nil, c.result(fb, in.NextRetakeDate), nil
	}

	// Grading a completed interview again is a retake and goes through the policy.
	if d := c.policy.Evaluate(in, c.now()); !d.Eligible {
		return nil, nil, apperrors.RetakeCooldown(d.Reason, d.AvailableDate)
	}
	return in, nil, nil
}

func (c *feedbackCoordinator) buildBatch(
	in *models.Interview,
	fb *models.Feedback,
	transcript []models.TranscriptEntry,
	cooldownEnd *time.Time,
	now time.Time,
) []store.Operation {
	var nextRetake any
	if cooldownEnd != nil {
		nextRetake = *cooldownEnd
	}

	// The interview must still be exactly as read, otherwise another
	// submission won the race.
	var expectFeedback any
	if in.FeedbackID != nil {
		expectFeedback = *in.FeedbackID
	}

	ops := []store.Operation{
		store.InsertOp{Collection: models.CollectionFeedback, Doc: fb},
		store.UpdateOp{
			Collection: models.CollectionInterviews,
			ID:         in.ID,
			Fields: map[string]any{
				"status":           models.InterviewCompleted,
				"feedback_id":      fb.ID,
				"attempt_count":    fb.AttemptCount,
				"transcript":       datatypes.JSONSlice[models.TranscriptEntry](transcript),
				"next_retake_date": nextRetake,
				"last_attempt":     now,
				"updated_at":       now,
			},
			Expect: []store.Filter{
				store.Eq("attempt_count", in.AttemptCount),
				store.Eq("feedback_id", expectFeedback),
				store.Eq("status", in.Status),
			},
		},
		store.UpdateWhereOp{
			Collection: models.CollectionFeedback,
			Filters: []store.Filter{
				store.Eq("interview_id", in.ID),
				store.Ne("id", fb.ID),
				store.Eq("is_latest", true),
			},
			Fields: map[string]any{"is_latest": false},
		},
	}

	if fb.AttemptCount >= c.cfg.MaxAttempts {
		ops = append(ops, store.UpdateWhereOp{
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
	}

	return ops
}

// recoverCommit decides what a failed commit means. A conflict on an attempt
// that is already stored is a replay and returns the stored result. Other
// failures are checked against the interview in case the commit landed.
func (c *feedbackCoordinator) recoverCommit(ctx context.Context, in *models.Interview, fb *models.Feedback, commitErr error) (*models.FeedbackResult, error) {
	log := c.log.With(
		zap.String("interview_id", in.ID),
		zap.String("feedback_id", fb.ID),
		zap.NamedError("commit_error", commitErr),
	)

	if errors.Is(commitErr, store.ErrConflict) {
		existing, err := c.feedback.GetByID(ctx, fb.ID, fb.UserID)
		if err != nil {
			metrics.ObserveCommit(metrics.CommitConflict)
			log.Warn("feedback commit lost a concurrent update")
			return nil, apperrors.Conflict("interview was updated concurrently, reload and retry", commitErr)
		}

		current, err := c.interviews.GetByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		metrics.ObserveCommit(metrics.CommitReplayed)
		log.Info("feedback already committed, returning stored result")
		return c.result(existing, current.NextRetakeDate), nil
	}

	current, err := c.interviews.GetByID(ctx, in.ID)
	if err == nil && current.FeedbackID != nil && *current.FeedbackID == fb.ID {
		metrics.ObserveCommit(metrics.CommitApplied)
		log.Warn("commit reported failure but was applied")
		return c.result(fb, current.NextRetakeDate), nil
	}

	// The batch is all-or-nothing, so this only matters for a store that is not.
	if err := c.store.Delete(ctx, models.CollectionFeedback, fb.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to clean up feedback after commit failure", zap.Error(err))
	}

	metrics.ObserveCommit(metrics.CommitFailed)
	log.Error("feedback commit failed")
	return nil, apperrors.StoreTransient("failed to commit feedback", commitErr)
}

func (c *feedbackCoordinator) result(fb *models.Feedback, nextRetake *time.Time) *models.FeedbackResult {
	required := !c.policy.Passed(fb.TotalScore)
	var available *time.Time
	if required {
		available = nextRetake
	}
	return &models.FeedbackResult{
		Feedback: fb,
		RetakeEligibility: models.RetakeEligibility{
			Required:          required,
			AvailableDate:     available,
			AttemptsRemaining: c.policy.AttemptsRemaining(fb.AttemptCount),
		},
	}
}
