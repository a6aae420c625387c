package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/repositories"
	"learnpath/interview-api/internal/services"
)

// UploadHandler accepts reference PDFs for a course and queues them for indexing.
type UploadHandler struct {
	courses        repositories.CourseRepository
	storageService services.StorageService
	worker         services.Worker
	maxFileSize    int64
	log            *zap.Logger
}

func NewUploadHandler(
	courses repositories.CourseRepository,
	storageService services.StorageService,
	worker services.Worker,
	maxFileSize int64,
	log *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		courses:        courses,
		storageService: storageService,
		worker:         worker,
		maxFileSize:    maxFileSize,
		log:            log.Named("upload"),
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	courseID := c.Params("courseId")
	userID := UserID(c)

	course, err := h.courses.FindByID(c.UserContext(), courseID)
	if err != nil {
		return err
	}
	// Other users must not learn the course accepts uploads.
	if course.CreatedBy != userID {
		return apperrors.NotFound("course %s not found", courseID)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return apperrors.Validation("multipart field 'file' is required")
	}
	if file.Size > h.maxFileSize {
		return apperrors.Validation("file too large, max size: %d bytes", h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveMaterial(file, course.ID)
	if err != nil {
		return err
	}

	job := services.MaterialJob{
		CourseID: course.ID,
		Source:   file.Filename,
		FilePath: filePath,
	}
	if !h.worker.Enqueue(job) {
		if err := h.storageService.DeleteFile(filename); err != nil {
			h.log.Warn("failed to remove rejected upload", zap.String("file", filename), zap.Error(err))
		}
		return fiber.NewError(fiber.StatusServiceUnavailable, "indexing queue is full, try again later")
	}

	h.log.Info("material queued",
		zap.String("course_id", course.ID),
		zap.String("user_id", userID),
		zap.String("file", filename),
		zap.Int64("size", file.Size),
	)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":      "File queued for indexing",
		"courseId":     course.ID,
		"filename":     filename,
		"originalName": file.Filename,
	})
}
