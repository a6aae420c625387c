package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"learnpath/interview-api/internal/apperrors"
)

// StatusOf maps an error returned by a handler to the response status.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return fiber.StatusBadRequest
	case apperrors.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperrors.KindRetakeCooldown:
		return fiber.StatusForbidden
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindConflict:
		return fiber.StatusConflict
	case apperrors.KindUpstream:
		return fiber.StatusBadGateway
	case apperrors.KindStoreTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// NewErrorHandler renders errors as JSON. Wrapped causes are logged, never
// sent to the client.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = log.Named("http")

	return func(c *fiber.Ctx, err error) error {
		code := StatusOf(err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(code).JSON(fiber.Map{
				"error": fe.Message,
				"code":  code,
			})
		}

		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			log.Error("unhandled error",
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return c.Status(code).JSON(fiber.Map{
				"error": "internal server error",
				"code":  code,
			})
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("kind", string(appErr.Kind)),
				zap.Error(err),
			)
		}

		body := fiber.Map{
			"error": appErr.Message,
			"code":  code,
		}
		if appErr.Kind == apperrors.KindRetakeCooldown {
			body["code"] = "RETAKE_COOLDOWN"
			body["reason"] = appErr.Reason
			if appErr.RetakeDate != nil {
				body["retakeDate"] = appErr.RetakeDate.UTC().Format(time.RFC3339)
			}
		}
		if appErr.Retryable() {
			body["retryable"] = true
		}

		return c.Status(code).JSON(body)
	}
}
