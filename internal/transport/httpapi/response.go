package httpapi

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/query"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

func success(c *fiber.Ctx, code int, data any) error {
	return c.Status(code).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

func list(c *fiber.Ctx, res *query.Result) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":     "success",
		"data":       res.Data,
		"pagination": res.Pagination,
	})
}

func failure(c *fiber.Ctx, code int, msg string, details any) error {
	body := fiber.Map{
		"status":  "error",
		"message": msg,
	}
	if details != nil {
		body["errors"] = details
	}
	return c.Status(code).JSON(body)
}

// handleError maps the error taxonomy onto HTTP status codes.
func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	var (
		fe        *fiber.Error
		ve        *apperr.ValidationError
		shortfall *apperr.ShortfallError
	)
	switch {
	case errors.As(err, &fe):
		return failure(c, fe.Code, fe.Message, nil)
	case errors.As(err, &ve):
		var fields any
		if len(ve.Fields) > 0 {
			fields = ve.Fields
		}
		return failure(c, fiber.StatusBadRequest, ve.Msg, fields)
	case errors.Is(err, apperr.ErrMalformedQuery):
		// fails closed as a server error, with the parse message kept
		h.logger.Warn("Malformed list query",
			zap.String("path", c.Path()),
			zap.Error(err))
		return failure(c, fiber.StatusInternalServerError, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		return failure(c, fiber.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, apperr.ErrForbidden):
		return failure(c, fiber.StatusForbidden, err.Error(), nil)
	case errors.Is(err, apperr.ErrNotFound):
		return failure(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, apperr.ErrConflict):
		return failure(c, fiber.StatusConflict, err.Error(), nil)
	case errors.As(err, &shortfall):
		return failure(c, fiber.StatusUnprocessableEntity, err.Error(), fiber.Map{
			"difficulty": shortfall.Difficulty,
			"found":      shortfall.Found,
			"needed":     shortfall.Needed,
		})
	}

	h.logger.Error("Unhandled request error",
		zap.Any("request_id", c.Locals(localsRequestID)),
		zap.String("path", c.Path()),
		zap.Error(err))
	return failure(c, fiber.StatusInternalServerError, "internal server error", nil)
}

func tagErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request")
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		field := fieldPath(fe.Namespace())
		fields = append(fields, apperr.FieldError{Field: field, Error: msg})
	}
	return apperr.Validation("invalid request", fields...)
}

// fieldPath drops the request type name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
