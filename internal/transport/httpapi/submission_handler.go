package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qh20812/Edu-Core-Server/internal/service"
)

func (h *Handler) submit(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req submitRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	sub, err := h.svc.Submissions.Submit(c.UserContext(), actorFrom(c), id, service.SubmitInput{
		Answers: req.Answers,
		FileURL: req.FileURL,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, sub)
}

func (h *Handler) listSubmissions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.Submissions.ListSubmissionsForAssignment(c.UserContext(), actorFrom(c), id, queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) mySubmission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	sub, err := h.svc.Submissions.GetMySubmission(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, sub)
}

func (h *Handler) listMySubmissions(c *fiber.Ctx) error {
	res, err := h.svc.Submissions.ListMySubmissions(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) grade(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req gradeRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	sub, err := h.svc.Submissions.Grade(c.UserContext(), actorFrom(c), id, service.GradeInput{
		Score:    *req.Score,
		Feedback: req.Feedback,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, sub)
}
