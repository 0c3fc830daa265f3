package model

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionAnswer struct {
	QuestionID *uuid.UUID `json:"question_id,omitempty"`
	Answer     string     `json:"answer"`
}

// Submission is unique per (assignment, student).
type Submission struct {
	ID           uuid.UUID          `json:"id"`
	TenantID     uuid.UUID          `json:"tenant_id"`
	AssignmentID uuid.UUID          `json:"assignment_id"`
	StudentID    uuid.UUID          `json:"student_id"`
	Answers      []SubmissionAnswer `json:"answers"`
	FileURL      *string            `json:"file_url,omitempty"`
	Score        *float64           `json:"score,omitempty"`
	Feedback     *string            `json:"feedback,omitempty"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	GradedAt     *time.Time         `json:"graded_at,omitempty"`
	GradedBy     *uuid.UUID         `json:"graded_by,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (s *Submission) IsGraded() bool {
	return s.GradedAt != nil
}
