package model

import (
	"time"

	"github.com/google/uuid"
)

type Class struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Name      string     `json:"name"`
	Grade     string     `json:"grade,omitempty"`
	SubjectID *uuid.UUID `json:"subject_id,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ClassRole string

const (
	ClassRoleTeacher ClassRole = "teacher"
	ClassRoleStudent ClassRole = "student"
)

func (r ClassRole) Valid() bool {
	return r == ClassRoleTeacher || r == ClassRoleStudent
}

// ClassUser is a membership row, unique on (class, user).
type ClassUser struct {
	ClassID     uuid.UUID `json:"class_id"`
	UserID      uuid.UUID `json:"user_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	RoleInClass ClassRole `json:"role_in_class"`
	CreatedAt   time.Time `json:"created_at"`
}
