package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/services"
)

type FeedbackHandler struct {
	lifecycle services.InterviewLifecycle
	validate  *validator.Validate
}

func NewFeedbackHandler(lifecycle services.InterviewLifecycle, validate *validator.Validate) *FeedbackHandler {
	return &FeedbackHandler{
		lifecycle: lifecycle,
		validate:  validate,
	}
}

// HandleSubmit scores a transcript. Scoring can take a while; the commit
// still completes if the client disconnects after the assessment returned.
func (h *FeedbackHandler) HandleSubmit(c *fiber.Ctx) error {
	var req models.SubmitTranscriptRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if err := services.ValidateRequest(h.validate, &req); err != nil {
		return err
	}

	result, err := h.lifecycle.SubmitTranscriptForScoring(c.UserContext(), req.InterviewID, UserID(c), req.Transcript)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *FeedbackHandler) HandleGet(c *fiber.Ctx) error {
	fb, err := h.lifecycle.GetFeedbackByID(c.UserContext(), c.Params("id"), UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fb)
}

func (h *FeedbackHandler) HandleList(c *fiber.Ctx) error {
	list, err := h.lifecycle.ListUserFeedback(c.UserContext(), UserID(c))
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Feedback{}
	}
	return c.JSON(fiber.Map{"feedback": list})
}
