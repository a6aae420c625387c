package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"learnpath/interview-api/internal/apperrors"
)

const (
	userIDKey     = "userID"
	sessionCookie = "session"
)

// RequireAuth verifies an HS256 token from the Authorization header or the
// session cookie and stores its subject as the request's user id.
func RequireAuth(secret string) fiber.Handler {
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Cookies(sessionCookie)
		}
		if raw == "" {
			return apperrors.Unauthorized("missing credentials")
		}

		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return apperrors.Unauthorized("invalid credentials")
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return apperrors.Unauthorized("token has no subject")
		}

		c.Locals(userIDKey, sub)
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID returns the user id stored by RequireAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// RequestLogger logs one line per request. Errors are passed on untouched so
// the error handler still renders them.
func RequestLogger(log *zap.Logger) fiber.Handler {
	log = log.Named("http")

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusOf(err)
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := c.Locals("requestid").(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if uid := UserID(c); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}
