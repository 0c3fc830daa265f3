package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/access"
	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type ClassService struct {
	base
}

func NewClassService(d Deps) *ClassService {
	return &ClassService{base: newBase(d, "class")}
}

type ClassInput struct {
	Name      string
	Grade     string
	SubjectID *uuid.UUID
	TeacherID uuid.UUID
}

type MemberInput struct {
	UserID uuid.UUID
	Role   model.ClassRole
}

type MemberFailure struct {
	UserID uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
}

type MembersResult struct {
	Added   int             `json:"added"`
	Skipped []MemberFailure `json:"skipped,omitempty"`
}

// member checks that userID is an active user of tenantID whose account role
// fits the class role.
func (s *ClassService) member(ctx context.Context, tenantID, userID uuid.UUID, role model.ClassRole) error {
	u, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil || u.TenantID == nil || *u.TenantID != tenantID {
		return apperr.Validation("user not found in this school")
	}
	if !u.IsActive() {
		return apperr.Validation("user is not active")
	}
	if string(u.Role) != string(role) {
		return apperr.Validationf("user with role %s cannot join a class as %s", u.Role, role)
	}
	return nil
}

// CreateWithTeacher creates a class and its teacher membership atomically.
func (s *ClassService) CreateWithTeacher(ctx context.Context, actor model.Actor, in ClassInput) (*model.Class, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.IsSysAdmin() {
		return nil, apperr.Validation("classes are created by school administrators")
	}
	var errs fieldErrors
	errs.require(in.Name != "", "name", "required")
	errs.require(in.TeacherID != uuid.Nil, "teacher_id", "required")
	if err := errs.err("invalid class"); err != nil {
		return nil, err
	}
	if err := s.member(ctx, actor.TenantID, in.TeacherID, model.ClassRoleTeacher); err != nil {
		return nil, err
	}
	if in.SubjectID != nil {
		subject, err := s.Store.Subjects.GetByID(ctx, *in.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("get subject: %w", err)
		}
		if subject == nil || subject.TenantID != actor.TenantID {
			return nil, apperr.Validation("unknown subject", apperr.FieldError{Field: "subject_id", Error: "not found"})
		}
	}

	class := &model.Class{
		ID:        uuid.New(),
		TenantID:  actor.TenantID,
		Name:      in.Name,
		Grade:     in.Grade,
		SubjectID: in.SubjectID,
		CreatedBy: actor.ID,
	}
	err := s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Store.Classes.Create(ctx, class); err != nil {
			return err
		}
		return s.Store.ClassUsers.Add(ctx, &model.ClassUser{
			ClassID:     class.ID,
			UserID:      in.TeacherID,
			TenantID:    class.TenantID,
			RoleInClass: model.ClassRoleTeacher,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}

	s.Logger.Info("Class created",
		zap.String("class_id", class.ID.String()),
		zap.String("teacher_id", in.TeacherID.String()))
	return class, nil
}

func (s *ClassService) manageable(ctx context.Context, actor model.Actor, classID uuid.UUID) (*model.Class, error) {
	class, err := s.Store.Classes.GetByID(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil {
		return nil, apperr.NotFound("class")
	}
	if !access.CanMutate(actor, access.Class(class)) {
		return nil, apperr.Forbidden("only administrators may manage class membership")
	}
	return class, nil
}

// AddMembers adds each member independently; duplicates and unfit users are
// skipped and reported.
func (s *ClassService) AddMembers(ctx context.Context, actor model.Actor, classID uuid.UUID, members []MemberInput) (*MembersResult, error) {
	if len(members) == 0 {
		return nil, apperr.Validation("at least one member is required")
	}
	for i, m := range members {
		if m.UserID == uuid.Nil || !m.Role.Valid() {
			return nil, apperr.Validation("invalid member", apperr.FieldError{Field: fmt.Sprintf("members[%d]", i), Error: "user_id and role teacher|student required"})
		}
	}
	class, err := s.manageable(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	res := &MembersResult{}
	for _, m := range members {
		if err := s.member(ctx, class.TenantID, m.UserID, m.Role); err != nil {
			if !errors.Is(err, apperr.ErrValidation) {
				return res, err
			}
			res.Skipped = append(res.Skipped, MemberFailure{UserID: m.UserID, Reason: err.Error()})
			continue
		}
		err := s.Store.ClassUsers.Add(ctx, &model.ClassUser{
			ClassID:     class.ID,
			UserID:      m.UserID,
			TenantID:    class.TenantID,
			RoleInClass: m.Role,
		})
		switch {
		case err == nil:
			res.Added++
		case errors.Is(err, apperr.ErrConflict):
			res.Skipped = append(res.Skipped, MemberFailure{UserID: m.UserID, Reason: "already a member"})
		default:
			return res, fmt.Errorf("add members: %w", err)
		}
	}
	s.Logger.Info("Class members added",
		zap.String("class_id", classID.String()),
		zap.Int("added", res.Added),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (s *ClassService) RemoveMember(ctx context.Context, actor model.Actor, classID, userID uuid.UUID) error {
	if _, err := s.manageable(ctx, actor, classID); err != nil {
		return err
	}
	removed, err := s.Store.ClassUsers.Remove(ctx, classID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("class member")
	}
	return nil
}

// TransferStudent moves a student between classes of one school atomically.
func (s *ClassService) TransferStudent(ctx context.Context, actor model.Actor, studentID, fromClassID, toClassID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if fromClassID == toClassID {
		return apperr.Validation("source and target class are the same")
	}
	from, err := s.manageable(ctx, actor, fromClassID)
	if err != nil {
		return err
	}
	to, err := s.manageable(ctx, actor, toClassID)
	if err != nil {
		return err
	}
	if from.TenantID != to.TenantID {
		return apperr.Validation("classes belong to different schools")
	}

	err = s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.Store.ClassUsers.Get(ctx, fromClassID, studentID)
		if err != nil {
			return err
		}
		if cur == nil || cur.RoleInClass != model.ClassRoleStudent {
			return apperr.NotFound("student membership")
		}
		if _, err := s.Store.ClassUsers.Remove(ctx, fromClassID, studentID); err != nil {
			return err
		}
		return s.Store.ClassUsers.Add(ctx, &model.ClassUser{
			ClassID:     toClassID,
			UserID:      studentID,
			TenantID:    to.TenantID,
			RoleInClass: model.ClassRoleStudent,
		})
	})
	if err != nil {
		return fmt.Errorf("transfer student: %w", err)
	}
	s.Logger.Info("Student transferred",
		zap.String("student_id", studentID.String()),
		zap.String("from", fromClassID.String()),
		zap.String("to", toClassID.String()))
	return nil
}

func (s *ClassService) ListClasses(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Classes,
		Scope:  query.ScopeFor(actor),
		Params: params,
		Populate: []query.Populate{
			{Field: "subject_id", Entity: query.Subjects, Fields: []string{"name"}},
		},
	})
}
