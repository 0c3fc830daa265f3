package model

import (
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	ClassID     uuid.UUID  `json:"class_id"`
	ExamID      *uuid.UUID `json:"exam_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AssignmentDetails carries the linked exam, when there is one.
type AssignmentDetails struct {
	Assignment
	Exam *ExamDetails `json:"exam,omitempty"`
}
