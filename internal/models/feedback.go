package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const CollectionFeedback = "feedback"

// CategoryScores are the fixed rubric categories, each in [0,100].
type CategoryScores struct {
	Communication  int `json:"communication"`
	Technical      int `json:"technical"`
	ProblemSolving int `json:"problemSolving"`
	CulturalFit    int `json:"culturalFit"`
	Confidence     int `json:"confidence"`
}

// ScoreReport is the validated output of the assessment call.
type ScoreReport struct {
	TotalScore          int            `json:"totalScore"`
	CategoryScores      CategoryScores `json:"categoryScores"`
	Strengths           []string       `json:"strengths"`
	AreasForImprovement []string       `json:"areasForImprovement"`
	FinalAssessment     string         `json:"finalAssessment"`
}

type Feedback struct {
	ID                  string                             `gorm:"type:varchar(36);primaryKey" json:"id"`
	InterviewID         string                             `gorm:"type:varchar(36);not null;index" json:"interviewId"`
	UserID              string                             `gorm:"type:text;not null;index" json:"userId"`
	AttemptCount        int                                `gorm:"not null" json:"attemptCount"`
	TotalScore          int                                `gorm:"not null" json:"totalScore"`
	CategoryScores      datatypes.JSONType[CategoryScores] `json:"categoryScores"`
	Strengths           datatypes.JSONSlice[string]        `json:"strengths"`
	AreasForImprovement datatypes.JSONSlice[string]        `json:"areasForImprovement"`
	FinalAssessment     string                             `gorm:"type:text" json:"finalAssessment"`
	IsLatest            bool                               `gorm:"not null;default:false" json:"isLatest"`
	Transcript          string                             `gorm:"type:text" json:"transcript"`
	CreatedAt           time.Time                          `gorm:"index" json:"createdAt"`
}

func (Feedback) TableName() string {
	return CollectionFeedback
}

func (f *Feedback) DocumentID() string      { return f.ID }
func (f *Feedback) SetDocumentID(id string) { f.ID = id }

func (f *Feedback) Validate() error {
	switch {
	case f.ID == "":
		return fmt.Errorf("feedback has no id")
	case f.InterviewID == "":
		return fmt.Errorf("feedback %s has no interviewId", f.ID)
	case f.UserID == "":
		return fmt.Errorf("feedback %s has no userId", f.ID)
	case f.TotalScore < 0 || f.TotalScore > 100:
		return fmt.Errorf("feedback %s has totalScore %d outside [0,100]", f.ID, f.TotalScore)
	}
	return nil
}

// RetakeEligibility summarises what the learner may do after a scored attempt.
type RetakeEligibility struct {
	Required          bool       `json:"required"`
	AvailableDate     *time.Time `json:"availableDate"`
	AttemptsRemaining int        `json:"attemptsRemaining"`
}

type FeedbackResult struct {
	Feedback          *Feedback         `json:"feedback"`
	RetakeEligibility RetakeEligibility `json:"retakeEligibility"`
}
