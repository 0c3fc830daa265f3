// Package access decides whether an actor may see or change a resource.
// Decisions are pure: nothing here touches storage.
package access

import (
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
)

type Kind string

const (
	KindQuestion   Kind = "question"
	KindExam       Kind = "exam"
	KindAssignment Kind = "assignment"
	KindSubmission Kind = "submission"
	KindClass      Kind = "class"
)

// Resource is the slice of an entity the evaluator looks at.
type Resource struct {
	Kind      Kind
	TenantID  uuid.UUID
	CreatedBy uuid.UUID
	IsPublic  bool
}

func Question(q *model.Question) Resource {
	return Resource{Kind: KindQuestion, TenantID: q.TenantID, CreatedBy: q.CreatedBy, IsPublic: q.IsPublic}
}

func Exam(e *model.Exam) Resource {
	return Resource{Kind: KindExam, TenantID: e.TenantID, CreatedBy: e.CreatedBy}
}

func Assignment(a *model.Assignment) Resource {
	return Resource{Kind: KindAssignment, TenantID: a.TenantID, CreatedBy: a.CreatedBy}
}

// Submission is owned by the submitting student.
func Submission(s *model.Submission) Resource {
	return Resource{Kind: KindSubmission, TenantID: s.TenantID, CreatedBy: s.StudentID}
}

func Class(c *model.Class) Resource {
	return Resource{Kind: KindClass, TenantID: c.TenantID, CreatedBy: c.CreatedBy}
}

// sameTenant is false for every non-sys_admin actor looking across tenants.
func sameTenant(actor model.Actor, res Resource) bool {
	return actor.IsSysAdmin() || actor.TenantID == res.TenantID
}

// CanView evaluates read visibility. First matching rule wins:
// admin, creator, teacher on a tenant exam, public question.
func CanView(actor model.Actor, res Resource) bool {
	if actor.IsSysAdmin() {
		return true
	}
	if !sameTenant(actor, res) {
		return false
	}
	switch {
	case actor.Role == model.RoleSchoolAdmin:
		return true
	case res.CreatedBy == actor.ID:
		return true
	case res.Kind == KindExam && actor.Role == model.RoleTeacher:
		return true
	case res.Kind == KindQuestion && res.IsPublic:
		return true
	}
	return false
}

// CanMutate is the stricter ownership-or-admin test for update and delete.
func CanMutate(actor model.Actor, res Resource) bool {
	if actor.IsSysAdmin() {
		return true
	}
	if !sameTenant(actor, res) {
		return false
	}
	return actor.Role == model.RoleSchoolAdmin || res.CreatedBy == actor.ID
}

// CanGrade allows admins, the assignment creator and teachers of the class.
func CanGrade(actor model.Actor, assignment Resource, classTeacher bool) bool {
	if CanMutate(actor, assignment) {
		return true
	}
	return sameTenant(actor, assignment) && classTeacher
}
