package services

import (
	"time"

	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/models"
)

// Reasons reported by RetakePolicy.Evaluate.
const (
	RetakeInProgress  = "in_progress"
	RetakeMaxAttempts = "max_attempts"
	RetakePassed      = "passed"
	RetakeCooldown    = "cooldown"
	RetakeEligible    = "eligible"
)

type RetakeDecision struct {
	Eligible      bool
	Reason        string
	AvailableDate *time.Time
}

// RetakePolicy decides whether a learner may start another attempt. It has
// no I/O; the score comes from the interview's populated Feedback.
type RetakePolicy struct {
	minPassScore int
	maxAttempts  int
}

func NewRetakePolicy(cfg config.InterviewConfig) *RetakePolicy {
	return &RetakePolicy{
		minPassScore: cfg.MinPassScore,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Evaluate applies the rules in order: in-progress, attempt cap, passed, cooldown.
func (p *RetakePolicy) Evaluate(in *models.Interview, now time.Time) RetakeDecision {
	if in.Status == models.InterviewPending {
		return RetakeDecision{Eligible: true, Reason: RetakeInProgress}
	}

	if in.AttemptCount >= p.maxAttempts {
		return RetakeDecision{Reason: RetakeMaxAttempts}
	}

	if score := in.LatestScore(); score != nil && *score >= p.minPassScore {
		return RetakeDecision{Reason: RetakePassed}
	}

	if in.Status == models.InterviewCompleted && in.NextRetakeDate != nil && !now.After(*in.NextRetakeDate) {
		return RetakeDecision{Reason: RetakeCooldown, AvailableDate: in.NextRetakeDate}
	}

	return RetakeDecision{Eligible: true, Reason: RetakeEligible}
}

func (p *RetakePolicy) CanRetake(in *models.Interview, now time.Time) bool {
	return p.Evaluate(in, now).Eligible
}

// Passed reports whether score meets the pass threshold.
func (p *RetakePolicy) Passed(score int) bool {
	return score >= p.minPassScore
}

func (p *RetakePolicy) AttemptsRemaining(attemptCount int) int {
	return max(0, p.maxAttempts-attemptCount)
}

func (p *RetakePolicy) MaxAttempts() int {
	return p.maxAttempts
}
