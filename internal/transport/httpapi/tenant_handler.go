package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type createUserRequest struct {
	TenantID       *uuid.UUID `json:"tenant_id"`
	Email          string     `json:"email" validate:"required,email"`
	Password       string     `json:"password" validate:"required,min=8"`
	FullName       string     `json:"full_name" validate:"required,max=200"`
	Phone          string     `json:"phone" validate:"omitempty,max=30"`
	Role           model.Role `json:"role" validate:"required,oneof=sys_admin school_admin teacher student parent staff"`
	TelegramChatID *int64     `json:"telegram_chat_id"`
}

type subjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

func (h *Handler) listTenants(c *fiber.Ctx) error {
	res, err := h.svc.Tenants.ListTenants(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) getTenant(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.Tenants.GetTenant(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, t)
}

func (h *Handler) createUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.Users.CreateUser(c.UserContext(), actorFrom(c), service.UserInput{
		TenantID:       req.TenantID,
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Phone:          req.Phone,
		Role:           req.Role,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, u)
}

func (h *Handler) listUsers(c *fiber.Ctx) error {
	res, err := h.svc.Users.ListUsers(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) createSubject(c *fiber.Ctx) error {
	var req subjectRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	s, err := h.svc.Subjects.CreateSubject(c.UserContext(), actorFrom(c), req.Name, req.Description)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, s)
}

func (h *Handler) listSubjects(c *fiber.Ctx) error {
	res, err := h.svc.Subjects.ListSubjects(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}
