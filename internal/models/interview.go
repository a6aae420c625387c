package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type InterviewStatus string

const (
	InterviewPending   InterviewStatus = "pending"
	InterviewCompleted InterviewStatus = "completed"
	InterviewArchived  InterviewStatus = "archived"
)

func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewPending, InterviewCompleted, InterviewArchived:
		return true
	}
	return false
}

const CollectionInterviews = "interviews"

type TranscriptEntry struct {
	Role    string `json:"role" validate:"required,notblank"`
	Content string `json:"content" validate:"required,notblank"`
}

type Interview struct {
	ID             string                               `gorm:"type:varchar(36);primaryKey" json:"id"`
	CourseID       string                               `gorm:"type:text;not null;index:idx_interviews_course_user" json:"courseId"`
	UserID         string                               `gorm:"type:text;not null;index:idx_interviews_course_user;index" json:"userId"`
	Status         InterviewStatus                      `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	AttemptCount   int                                  `gorm:"not null;default:1" json:"attemptCount"`
	Questions      datatypes.JSONSlice[string]          `json:"questions"`
	Transcript     datatypes.JSONSlice[TranscriptEntry] `json:"transcript"`
	FeedbackID     *string                              `gorm:"type:varchar(36)" json:"feedbackId"`
	LastAttempt    time.Time                            `json:"lastAttempt"`
	NextRetakeDate *time.Time                           `json:"nextRetakeDate"`
	ArchivedAt     *time.Time                           `json:"archivedAt,omitempty"`
	CreatedAt      time.Time                            `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time                            `json:"updatedAt"`

	// Latest feedback, populated by reads that need it.
	Feedback *Feedback `gorm:"-" json:"feedback,omitempty"`
}

func (Interview) TableName() string {
	return CollectionInterviews
}

func (i *Interview) DocumentID() string      { return i.ID }
func (i *Interview) SetDocumentID(id string) { i.ID = id }

// Validate reports stored documents that are missing required fields.
func (i *Interview) Validate() error {
	switch {
	case i.ID == "":
		return fmt.Errorf("interview has no id")
	case i.CourseID == "":
		return fmt.Errorf("interview %s has no courseId", i.ID)
	case i.UserID == "":
		return fmt.Errorf("interview %s has no userId", i.ID)
	case !i.Status.Valid():
		return fmt.Errorf("interview %s has invalid status %q", i.ID, i.Status)
	case i.AttemptCount < 1:
		return fmt.Errorf("interview %s has invalid attemptCount %d", i.ID, i.AttemptCount)
	case i.Status != InterviewPending && i.FeedbackID == nil && i.Status != InterviewArchived:
		return fmt.Errorf("interview %s is %s without feedback", i.ID, i.Status)
	}
	return nil
}

// LatestScore returns the total score of the populated feedback, if any.
func (i *Interview) LatestScore() *int {
	if i.Feedback == nil {
		return nil
	}
	score := i.Feedback.TotalScore
	return &score
}
