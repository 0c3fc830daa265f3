package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type classRequest struct {
	Name      string     `json:"name" validate:"required,max=200"`
	Grade     string     `json:"grade" validate:"omitempty,max=50"`
	SubjectID *uuid.UUID `json:"subject_id"`
	TeacherID uuid.UUID  `json:"teacher_id" validate:"required"`
}

type memberRequest struct {
	UserID uuid.UUID       `json:"user_id" validate:"required"`
	Role   model.ClassRole `json:"role" validate:"required,oneof=teacher student"`
}

type membersRequest struct {
	Members []memberRequest `json:"members" validate:"required,min=1,dive"`
}

type transferRequest struct {
	StudentID   uuid.UUID `json:"student_id" validate:"required"`
	FromClassID uuid.UUID `json:"from_class_id" validate:"required"`
	ToClassID   uuid.UUID `json:"to_class_id" validate:"required"`
}

func (h *Handler) createClass(c *fiber.Ctx) error {
	var req classRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	class, err := h.svc.Classes.CreateWithTeacher(c.UserContext(), actorFrom(c), service.ClassInput{
		Name:      req.Name,
		Grade:     req.Grade,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, class)
}

func (h *Handler) listClasses(c *fiber.Ctx) error {
	res, err := h.svc.Classes.ListClasses(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) addMembers(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req membersRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	members := make([]service.MemberInput, len(req.Members))
	for i, m := range req.Members {
		members[i] = service.MemberInput{UserID: m.UserID, Role: m.Role}
	}
	res, err := h.svc.Classes.AddMembers(c.UserContext(), actorFrom(c), id, members)
	if err != nil {
		return err
	}
	code := fiber.StatusOK
	if len(res.Skipped) > 0 {
		code = fiber.StatusMultiStatus
	}
	return success(c, code, res)
}

func (h *Handler) removeMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.svc.Classes.RemoveMember(c.UserContext(), actorFrom(c), id, userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) transferStudent(c *fiber.Ctx) error {
	var req transferRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	err := h.svc.Classes.TransferStudent(c.UserContext(), actorFrom(c), req.StudentID, req.FromClassID, req.ToClassID)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) listClassAssignments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.Assignments.ListAssignmentsByClass(c.UserContext(), actorFrom(c), id, queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}
