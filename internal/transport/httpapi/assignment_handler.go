package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type assignmentRequest struct {
	ClassID     uuid.UUID  `json:"class_id" validate:"required"`
	ExamID      *uuid.UUID `json:"exam_id"`
	Title       string     `json:"title" validate:"required,max=300"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date" validate:"required"`
}

type assignmentPatchRequest struct {
	ExamID      *uuid.UUID `json:"exam_id"`
	Title       *string    `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type submitRequest struct {
	Answers []model.SubmissionAnswer `json:"answers"`
	FileURL *string                  `json:"file_url" validate:"omitempty,url"`
}

type gradeRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0"`
	Feedback *string  `json:"feedback"`
}

func (h *Handler) createAssignment(c *fiber.Ctx) error {
	var req assignmentRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Assignments.CreateAssignment(c.UserContext(), actorFrom(c), service.AssignmentInput{
		ClassID:     req.ClassID,
		ExamID:      req.ExamID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, a)
}

func (h *Handler) getAssignment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Assignments.GetAssignmentDetails(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, a)
}

func (h *Handler) updateAssignment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req assignmentPatchRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Assignments.UpdateAssignment(c.UserContext(), actorFrom(c), id, service.AssignmentPatch{
		ExamID:      req.ExamID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, a)
}

func (h *Handler) deleteAssignment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Assignments.DeleteAssignment(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
