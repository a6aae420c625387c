package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/services"
)

type InterviewHandler struct {
	lifecycle services.InterviewLifecycle
	validate  *validator.Validate
}

func NewInterviewHandler(lifecycle services.InterviewLifecycle, validate *validator.Validate) *InterviewHandler {
	return &InterviewHandler{
		lifecycle: lifecycle,
		validate:  validate,
	}
}

// HandleStart answers 201 for a new interview and 200 when a pending one is resumed.
func (h *InterviewHandler) HandleStart(c *fiber.Ctx) error {
	var req models.StartInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if err := services.ValidateRequest(h.validate, &req); err != nil {
		return err
	}

	resp, err := h.lifecycle.StartOrResumeInterview(c.UserContext(), req.CourseID, UserID(c))
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if resp.Resumed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(resp)
}

func (h *InterviewHandler) HandleStatus(c *fiber.Ctx) error {
	view, err := h.lifecycle.GetInterviewStatus(c.UserContext(), c.Params("courseId"), UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *InterviewHandler) HandleList(c *fiber.Ctx) error {
	interviews, err := h.lifecycle.ListUserInterviews(c.UserContext(), UserID(c))
	if err != nil {
		return err
	}
	if interviews == nil {
		interviews = []models.Interview{}
	}
	return c.JSON(fiber.Map{"interviews": interviews})
}
