package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/metrics"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/repositories"
)

// InterviewLifecycle is the entry point used by the HTTP layer.
type InterviewLifecycle interface {
	StartOrResumeInterview(ctx context.Context, courseID, userID string) (*models.StartInterviewResponse, error)
	SubmitTranscriptForScoring(ctx context.Context, interviewID, userID string, transcript []models.TranscriptEntry) (*models.FeedbackResult, error)
	GetInterviewStatus(ctx context.Context, courseID, userID string) (*models.InterviewStatusView, error)
	ListUserInterviews(ctx context.Context, userID string) ([]models.Interview, error)
	GetFeedbackByID(ctx context.Context, feedbackID, userID string) (*models.Feedback, error)
	ListUserFeedback(ctx context.Context, userID string) ([]models.Feedback, error)
}

type interviewLifecycle struct {
	interviews  repositories.InterviewRepository
	feedback    repositories.FeedbackRepository
	courses     repositories.CourseRepository
	questions   QuestionGenerator
	coordinator FeedbackCoordinator
	policy      *RetakePolicy
	timeout     time.Duration
	starts      singleflight.Group
	log         *zap.Logger
	now         func() time.Time
}

func NewInterviewLifecycle(
	interviews repositories.InterviewRepository,
	feedback repositories.FeedbackRepository,
	courses repositories.CourseRepository,
	questions QuestionGenerator,
	coordinator FeedbackCoordinator,
	cfg config.InterviewConfig,
	log *zap.Logger,
) InterviewLifecycle {
	return &interviewLifecycle{
		interviews:  interviews,
		feedback:    feedback,
		courses:     courses,
		questions:   questions,
		coordinator: coordinator,
		policy:      NewRetakePolicy(cfg),
		timeout:     cfg.StartTimeout,
		log:         log.Named("lifecycle"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StartOrResumeInterview implements InterviewLifecycle. Concurrent calls for
// the same course and user share one execution. The shared work is detached
// from any single caller, so a caller that goes away only abandons its own wait.
func (l *interviewLifecycle) StartOrResumeInterview(ctx context.Context, courseID, userID string) (*models.StartInterviewResponse, error) {
	if courseID == "" {
		return nil, apperrors.Validation("courseId is required")
	}

	ch := l.starts.DoChan(courseID+"\x00"+userID, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.startOrResume(shared, courseID, userID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.StartInterviewResponse), nil
	}
}

func (l *interviewLifecycle) startOrResume(ctx context.Context, courseID, userID string) (*models.StartInterviewResponse, error) {
	pending, err := l.interviews.GetPending(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		metrics.ObserveStart(metrics.StartResumed)
		return &models.StartInterviewResponse{Interview: pending, Resumed: true}, nil
	}

	latest, err := l.interviews.GetLatest(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	attempt, previousID := 1, ""
	if latest != nil {
		if d := l.policy.Evaluate(latest, l.now()); !d.Eligible {
			metrics.ObserveStart(metrics.StartRejected)
			l.log.Info("retake rejected",
				zap.String("course_id", courseID),
				zap.String("user_id", userID),
				zap.String("reason", d.Reason),
			)
			return nil, apperrors.RetakeCooldown(d.Reason, d.AvailableDate)
		}
		attempt, previousID = latest.AttemptCount+1, latest.ID
	}

	course, err := l.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	questions, err := l.questions.GenerateQuestions(ctx, course)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apperrors.Upstream("question generation returned no questions", nil)
	}

	created, err := l.interviews.Create(ctx, repositories.NewInterview{
		CourseID:            courseID,
		UserID:              userID,
		Questions:           questions,
		AttemptCount:        attempt,
		PreviousInterviewID: previousID,
	})
	if errors.Is(err, apperrors.ErrConflict) {
		// Another instance created the pending interview first.
		pending, rerr := l.interviews.GetPending(ctx, courseID, userID)
		if rerr != nil {
			return nil, rerr
		}
		if pending == nil {
			return nil, err
		}
		metrics.ObserveStart(metrics.StartResumed)
		return &models.StartInterviewResponse{Interview: pending, Resumed: true}, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.ObserveStart(metrics.StartCreated)
	return &models.StartInterviewResponse{Interview: created}, nil
}

// SubmitTranscriptForScoring implements InterviewLifecycle.
func (l *interviewLifecycle) SubmitTranscriptForScoring(ctx context.Context, interviewID, userID string, transcript []models.TranscriptEntry) (*models.FeedbackResult, error) {
	if interviewID == "" {
		return nil, apperrors.Validation("interviewId is required")
	}
	return l.coordinator.SubmitTranscript(ctx, interviewID, userID, transcript)
}

// GetInterviewStatus implements InterviewLifecycle.
func (l *interviewLifecycle) GetInterviewStatus(ctx context.Context, courseID, userID string) (*models.InterviewStatusView, error) {
	latest, err := l.interviews.GetLatest(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return &models.InterviewStatusView{
			CanRetake:         true,
			RetakeReason:      RetakeEligible,
			AttemptsRemaining: l.policy.MaxAttempts(),
		}, nil
	}

	d := l.policy.Evaluate(latest, l.now())
	return &models.InterviewStatusView{
		Exists:              true,
		InterviewID:         latest.ID,
		Status:              latest.Status,
		FeedbackID:          latest.FeedbackID,
		Score:               latest.LatestScore(),
		CanRetake:           d.Eligible,
		RetakeReason:        d.Reason,
		RetakeAvailableDate: latest.NextRetakeDate,
		AttemptCount:        latest.AttemptCount,
		AttemptsRemaining:   l.policy.AttemptsRemaining(latest.AttemptCount),
	}, nil
}

// ListUserInterviews implements InterviewLifecycle.
func (l *interviewLifecycle) ListUserInterviews(ctx context.Context, userID string) ([]models.Interview, error) {
	return l.interviews.ListByUser(ctx, userID)
}

// GetFeedbackByID implements InterviewLifecycle.
func (l *interviewLifecycle) GetFeedbackByID(ctx context.Context, feedbackID, userID string) (*models.Feedback, error) {
	return l.feedback.GetByID(ctx, feedbackID, userID)
}

// ListUserFeedback implements InterviewLifecycle.
func (l *interviewLifecycle) ListUserFeedback(ctx context.Context, userID string) ([]models.Feedback, error) {
	return l.feedback.ListByUser(ctx, userID)
}
