package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Routes groups the handlers mounted under /api/v1. Upload is nil when the
// vector index is disabled.
type Routes struct {
	Interviews *InterviewHandler
	Feedback   *FeedbackHandler
	Courses    *CourseHandler
	Upload     *UploadHandler
	JWTSecret  string
}

func (r Routes) Register(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().UTC(),
		})
	})

	authed := api.Group("", RequireAuth(r.JWTSecret))

	authed.Post("/interviews", r.Interviews.HandleStart)
	authed.Get("/interviews/status/:courseId", r.Interviews.HandleStatus)
	authed.Get("/interviews", r.Interviews.HandleList)

	authed.Post("/feedback", r.Feedback.HandleSubmit)
	authed.Get("/feedback/:id", r.Feedback.HandleGet)
	authed.Get("/feedback", r.Feedback.HandleList)

	authed.Get("/courses/:courseId", r.Courses.HandleGet)
	if r.Upload != nil {
		authed.Post("/courses/:courseId/materials", r.Upload.HandleUpload)
	}
}
