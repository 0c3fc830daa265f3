package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

// examHeader is shared by the create and generate bodies.
type examHeader struct {
	SubjectID    uuid.UUID `json:"subject_id" validate:"required"`
	Title        string    `json:"title" validate:"required,max=300"`
	Description  string    `json:"description"`
	Duration     int       `json:"duration" validate:"required,gt=0"`
	TotalPoints  float64   `json:"total_points" validate:"required,gt=0"`
	IsRandomized bool      `json:"is_randomized"`
}

func (h examHeader) toService() service.ExamHeader {
	return service.ExamHeader{
		SubjectID:    h.SubjectID,
		Title:        h.Title,
		Description:  h.Description,
		Duration:     h.Duration,
		TotalPoints:  h.TotalPoints,
		IsRandomized: h.IsRandomized,
	}
}

type questionRef struct {
	QuestionID uuid.UUID `json:"question_id" validate:"required"`
	Points     float64   `json:"points" validate:"gt=0"`
	Order      int       `json:"order" validate:"gte=0"`
}

func toRefs(in []questionRef) []model.QuestionRef {
	refs := make([]model.QuestionRef, len(in))
	for i, r := range in {
		refs[i] = model.QuestionRef{QuestionID: r.QuestionID, Points: r.Points, Order: r.Order}
	}
	return refs
}

type createExamRequest struct {
	examHeader
	Questions []questionRef `json:"questions" validate:"required,min=1,dive"`
}

type generateExamRequest struct {
	examHeader
	Distribution   map[model.Difficulty]int `json:"difficulty_distribution" validate:"required,min=1,dive,keys,oneof=easy medium hard,endkeys,gte=0"`
	TotalQuestions int                      `json:"total_questions" validate:"required,gt=0"`
}

type examPatchRequest struct {
	Title        *string  `json:"title" validate:"omitempty,min=1,max=300"`
	Description  *string  `json:"description"`
	Duration     *int     `json:"duration"`
	TotalPoints  *float64 `json:"total_points"`
	IsRandomized *bool    `json:"is_randomized"`
}

type linkRequest struct {
	Questions []questionRef `json:"questions" validate:"required,min=1,dive"`
}

func (h *Handler) createExam(c *fiber.Ctx) error {
	var req createExamRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	exam, err := h.svc.Exams.CreateExamAtomic(c.UserContext(), actorFrom(c), service.CreateExamInput{
		ExamHeader: req.toService(),
		Questions:  toRefs(req.Questions),
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, exam)
}

func (h *Handler) generateExam(c *fiber.Ctx) error {
	var req generateExamRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	exam, err := h.svc.Exams.GenerateExam(c.UserContext(), actorFrom(c), service.GenerateExamInput{
		ExamHeader:     req.toService(),
		Distribution:   req.Distribution,
		TotalQuestions: req.TotalQuestions,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, exam)
}

func (h *Handler) listExams(c *fiber.Ctx) error {
	res, err := h.svc.Exams.ListExams(c.UserContext(), actorFrom(c), queryValues(c))
	if err != nil {
		return err
	}
	return list(c, res)
}

func (h *Handler) getExam(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	exam, err := h.svc.Exams.GetExamDetails(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, exam)
}

func (h *Handler) updateExam(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req examPatchRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	exam, err := h.svc.Exams.UpdateExam(c.UserContext(), actorFrom(c), id, service.UpdateExamInput{
		Title:        req.Title,
		Description:  req.Description,
		Duration:     req.Duration,
		TotalPoints:  req.TotalPoints,
		IsRandomized: req.IsRandomized,
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, exam)
}

func (h *Handler) deleteExam(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Exams.DeleteExam(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// linkQuestions answers 207 when some questions were skipped.
func (h *Handler) linkQuestions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req linkRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Exams.LinkQuestionsBestEffort(c.UserContext(), actorFrom(c), id, toRefs(req.Questions))
	if err != nil {
		return err
	}
	code := fiber.StatusOK
	if len(res.Skipped) > 0 {
		code = fiber.StatusMultiStatus
	}
	return success(c, code, res)
}

func (h *Handler) removeQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	questionID, err := paramID(c, "questionId")
	if err != nil {
		return err
	}
	if err := h.svc.Exams.RemoveQuestion(c.UserContext(), actorFrom(c), id, questionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
