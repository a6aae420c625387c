package handlers

import (
	"github.com/gofiber/fiber/v2"

	"learnpath/interview-api/internal/repositories"
)

type CourseHandler struct {
	courses repositories.CourseRepository
}

func NewCourseHandler(courses repositories.CourseRepository) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func (h *CourseHandler) HandleGet(c *fiber.Ctx) error {
	course, err := h.courses.FindByID(c.UserContext(), c.Params("courseId"))
	if err != nil {
		return err
	}
	return c.JSON(course)
}
