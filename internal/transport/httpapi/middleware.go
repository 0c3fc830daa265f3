package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/model"
)

const (
	headerRequestID = "X-Request-ID"
	localsRequestID = "request_id"
	localsActor     = "actor"
)

// requestContext tags the request with an id, bounds it with a timeout and
// writes one log line once the response status is known.
func (h *Handler) requestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Locals(localsRequestID, id)

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("Request failed", fields...)
		} else {
			h.logger.Info("Request handled", fields...)
		}
		return nil
	}
}

func bearerToken(c *fiber.Ctx) string {
	const prefix = "Bearer "
	v := c.Get(fiber.HeaderAuthorization)
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}

// authenticate verifies the bearer token and reloads the account so that a
// deactivated user is rejected even with an unexpired token.
func (h *Handler) authenticate(c *fiber.Ctx) error {
	raw := bearerToken(c)
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}
	claimed, err := h.tokens.Parse(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	actor, err := h.svc.Users.ActorFor(c.UserContext(), claimed.ID)
	if err != nil {
		return err
	}
	c.Locals(localsActor, actor)
	return c.Next()
}

func actorFrom(c *fiber.Ctx) model.Actor {
	actor, _ := c.Locals(localsActor).(model.Actor)
	return actor
}
