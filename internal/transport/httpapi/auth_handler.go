package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type registerRequest struct {
	SchoolName string     `json:"school_name" validate:"required,max=200"`
	SchoolCode string     `json:"school_code" validate:"omitempty,max=50"`
	Plan       model.Plan `json:"plan" validate:"omitempty,oneof=small medium large"`
	AdminEmail string     `json:"admin_email" validate:"required,email"`
	AdminName  string     `json:"admin_name" validate:"required,max=200"`
	AdminPhone string     `json:"admin_phone" validate:"omitempty,max=30"`
	Password   string     `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

func (h *Handler) registerTenant(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	reg, err := h.svc.Tenants.RegisterWithAdmin(c.UserContext(), service.RegisterInput{
		SchoolName: req.SchoolName,
		SchoolCode: req.SchoolCode,
		Plan:       req.Plan,
		AdminEmail: req.AdminEmail,
		AdminName:  req.AdminName,
		AdminPhone: req.AdminPhone,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, reg)
}

func (h *Handler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	u, err := h.svc.Users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	token, exp, err := h.tokens.Issue(u.Actor())
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: u})
}

func (h *Handler) me(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, actorFrom(c))
}
