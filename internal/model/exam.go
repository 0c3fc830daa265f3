package model

import (
	"time"

	"github.com/google/uuid"
)

type Exam struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	SubjectID    uuid.UUID `json:"subject_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Duration     int       `json:"duration"` // minutes
	TotalPoints  float64   `json:"total_points"`
	IsRandomized bool      `json:"is_randomized"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExamQuestion links a question into an exam. (exam, question) is unique.
type ExamQuestion struct {
	ExamID     uuid.UUID `json:"exam_id"`
	QuestionID uuid.UUID `json:"question_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Points     float64   `json:"points"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExamQuestionDetail is a link row joined with its question.
type ExamQuestionDetail struct {
	Question
	Points float64 `json:"points"`
	Order  int     `json:"order"`
}

// ExamDetails is an exam with its questions ordered by Order.
type ExamDetails struct {
	Exam
	Questions []ExamQuestionDetail `json:"questions"`
}

// QuestionRef is one entry of a manual composition request.
type QuestionRef struct {
	QuestionID uuid.UUID `json:"question_id"`
	Points     float64   `json:"points"`
	Order      int       `json:"order,omitempty"`
}
