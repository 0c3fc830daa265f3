package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type questionRequest struct {
	SubjectID  uuid.UUID          `json:"subject_id" validate:"required"`
	Topic      string             `json:"topic" validate:"omitempty,max=200"`
	Difficulty model.Difficulty   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Type       model.QuestionType `json:"type" validate:"required,oneof=multiple_choice essay"`
	Content    string             `json:"content" validate:"required"`
	Answers    []model.Answer     `json:"answers"`
	ImageURL   *string            `json:"image_url" validate:"omitempty,url"`
	Tags       []string           `json:"tags" validate:"omitempty,dive,max=50"`
	IsPublic   bool               `json:"is_public"`
}

type questionPatchRequest struct {
	SubjectID  *uuid.UUID          `json:"subject_id"`
	Topic      *string             `json:"topic" validate:"omitempty,max=200"`
	Difficulty *model.Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Type       *model.QuestionType `json:"type" validate:"omitempty,oneof=multiple_choice essay"`
	Content    *string             `json:"content" validate:"omitempty,min=1"`
	Answers    *[]model.Answer     `json:"answers"`
	ImageURL   *string             `json:"image_url" validate:"omitempty,url"`
	Tags       *[]string           `json:"tags"`
	IsPublic   *bool               `json:"is_public"`
}

func (h *Handler) createQuestion(c *fiber.Ctx) error {
	var req questionRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	q, err := h.svc.Questions.CreateQuestion(c.UserContext(), actorFrom(c), service.QuestionInput{
		SubjectID:  req.SubjectID,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Type:       req.Type,
		Content:    req.Content,
		Answers:    req.Answers,
		ImageURL:   req.ImageURL,
		Tags:       req.Tags,
		IsPublic:   req.IsPublic,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, q)
}

func (h *Handler) listQuestions(c *fiber.Ctx) error {
	res, err := h.svc.Questions.ListQuestions(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) getQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	q, err := h.svc.Questions.GetQuestion(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, q)
}

func (h *Handler) updateQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req questionPatchRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	q, err := h.svc.Questions.UpdateQuestion(c.UserContext(), actorFrom(c), id, service.QuestionPatch{
		SubjectID:  req.SubjectID,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Type:       req.Type,
		Content:    req.Content,
		Answers:    req.Answers,
		ImageURL:   req.ImageURL,
		Tags:       req.Tags,
		IsPublic:   req.IsPublic,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, q)
}

func (h *Handler) deleteQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Questions.DeleteQuestion(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
