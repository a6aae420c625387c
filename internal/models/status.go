package models

import "time"

// InterviewStatusView is the read model returned by status queries.
type InterviewStatusView struct {
	Exists              bool            `json:"exists"`
	InterviewID         string          `json:"interviewId,omitempty"`
	Status              InterviewStatus `json:"status,omitempty"`
	FeedbackID          *string         `json:"feedbackId,omitempty"`
	Score               *int            `json:"score"`
	CanRetake           bool            `json:"canRetake"`
	RetakeReason        string          `json:"retakeReason,omitempty"`
	RetakeAvailableDate *time.Time      `json:"retakeAvailableDate"`
	AttemptCount        int             `json:"attemptCount,omitempty"`
	AttemptsRemaining   int             `json:"attemptsRemaining"`
}

type StartInterviewRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

type StartInterviewResponse struct {
	Interview *Interview `json:"interview"`
	Resumed   bool       `json:"resumed"`
}

type SubmitTranscriptRequest struct {
	InterviewID string            `json:"interviewId" validate:"required"`
	Transcript  []TranscriptEntry `json:"transcript" validate:"required,min=1,dive"`
}
