package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
)

// NewValidator returns the validator shared by services and handlers.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// ValidateTranscript rejects an empty transcript or any entry with a blank
// role or content.
func ValidateTranscript(v *validator.Validate, transcript []models.TranscriptEntry) error {
	if len(transcript) == 0 {
		return apperrors.Validation("transcript must contain at least one entry")
	}

	for i := range transcript {
		if err := v.Struct(transcript[i]); err != nil {
			return apperrors.Validation("transcript entry %d: %s", i, describeValidation(err))
		}
	}
	return nil
}

// ValidateRequest checks a decoded request body against its validate tags.
func ValidateRequest(v *validator.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return apperrors.Validation("%s", describeValidation(err))
	}
	return nil
}

// FlattenTranscript renders the transcript as "role: content" lines.
func FlattenTranscript(transcript []models.TranscriptEntry) string {
	var b strings.Builder
	for i, e := range transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimSpace(e.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(e.Content))
	}
	return b.String()
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
