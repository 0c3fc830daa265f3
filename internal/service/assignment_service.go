package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/access"
	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/cache"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/notify"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type AssignmentService struct {
	base
	exams *ExamService
}

func NewAssignmentService(d Deps, exams *ExamService) *AssignmentService {
	return &AssignmentService{base: newBase(d, "assignment"), exams: exams}
}

type AssignmentInput struct {
	ClassID     uuid.UUID
	ExamID      *uuid.UUID
	Title       string
	Description string
	DueDate     time.Time
}

type AssignmentPatch struct {
	ExamID      *uuid.UUID
	Title       *string
	Description *string
	DueDate     *time.Time
}

// classAccess loads a class and reports the actor's membership in it.
func (s *AssignmentService) classAccess(ctx context.Context, actor model.Actor, classID uuid.UUID) (*model.Class, *model.ClassUser, error) {
	class, err := s.Store.Classes.GetByID(ctx, classID)
	if err != nil {
		return nil, nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil {
		return nil, nil, apperr.NotFound("class")
	}
	if !inTenant(actor, class.TenantID) {
		return nil, nil, apperr.Forbidden("class belongs to another tenant")
	}
	member, err := s.Store.ClassUsers.Get(ctx, classID, actor.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get class member: %w", err)
	}
	return class, member, nil
}

func (s *AssignmentService) checkExam(ctx context.Context, actor model.Actor, examID *uuid.UUID, tenantID uuid.UUID) error {
	if examID == nil {
		return nil
	}
	exam, err := s.Store.Exams.GetByID(ctx, *examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam == nil || exam.TenantID != tenantID {
		return apperr.Validation("unknown exam", apperr.FieldError{Field: "exam_id", Error: "not found"})
	}
	if !access.CanView(actor, access.Exam(exam)) {
		return apperr.Forbidden("no access to the linked exam")
	}
	return nil
}

// CreateAssignment requires a due date strictly in the future. Students of
// the class are notified.
func (s *AssignmentService) CreateAssignment(ctx context.Context, actor model.Actor, in AssignmentInput) (*model.Assignment, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	var errs fieldErrors
	errs.require(in.ClassID != uuid.Nil, "class_id", "required")
	errs.require(in.Title != "", "title", "required")
	errs.require(in.DueDate.After(s.Now()), "due_date", "must be in the future")
	if err := errs.err("invalid assignment"); err != nil {
		return nil, err
	}

	class, member, err := s.classAccess(ctx, actor, in.ClassID)
	if err != nil {
		return nil, err
	}
	teaches := member != nil && member.RoleInClass == model.ClassRoleTeacher
	if !actor.Role.IsAdmin() && !teaches && class.CreatedBy != actor.ID {
		return nil, apperr.Forbidden("only teachers of the class may assign work")
	}
	if err := s.checkExam(ctx, actor, in.ExamID, class.TenantID); err != nil {
		return nil, err
	}

	a := &model.Assignment{
		ID:          uuid.New(),
		TenantID:    class.TenantID,
		ClassID:     class.ID,
		ExamID:      in.ExamID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		CreatedBy:   actor.ID,
	}
	if err := s.Store.Assignments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	s.notifyStudents(ctx, a)
	return a, nil
}

func (s *AssignmentService) notifyStudents(ctx context.Context, a *model.Assignment) {
	students, err := s.Store.ClassUsers.ListByRole(ctx, a.ClassID, model.ClassRoleStudent)
	if err != nil {
		s.Logger.Warn("Failed to resolve assignment recipients", zap.Error(err))
		return
	}
	ids := make([]uuid.UUID, 0, len(students))
	for _, m := range students {
		ids = append(ids, m.UserID)
	}
	s.emit(ctx, notify.Event{
		Type:       notify.AssignmentCreated,
		TenantID:   a.TenantID,
		Recipients: ids,
		Title:      "New assignment: " + a.Title,
		Body:       "Due " + a.DueDate.Format(time.RFC1123),
		EntityID:   a.ID,
	})
}

func (s *AssignmentService) mutable(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Assignment, error) {
	a, err := s.Store.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if a == nil {
		return nil, apperr.NotFound("assignment")
	}
	if !access.CanMutate(actor, access.Assignment(a)) {
		return nil, apperr.Forbidden("only the creator or an administrator may change this assignment")
	}
	return a, nil
}

// UpdateAssignment re-checks the due date only when it changes.
func (s *AssignmentService) UpdateAssignment(ctx context.Context, actor model.Actor, id uuid.UUID, p AssignmentPatch) (*model.Assignment, error) {
	a, err := s.mutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var errs fieldErrors
	if p.Title != nil {
		errs.require(*p.Title != "", "title", "must not be empty")
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.DueDate != nil && !p.DueDate.Equal(a.DueDate) {
		errs.require(p.DueDate.After(s.Now()), "due_date", "must be in the future")
		a.DueDate = *p.DueDate
	}
	if err := errs.err("invalid assignment update"); err != nil {
		return nil, err
	}
	if p.ExamID != nil {
		if err := s.checkExam(ctx, actor, p.ExamID, a.TenantID); err != nil {
			return nil, err
		}
		a.ExamID = p.ExamID
	}

	if err := s.Store.Assignments.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	s.invalidate(ctx, cache.Key(assignmentKey, id.String()))
	return a, nil
}

// DeleteAssignment removes the assignment and its submissions atomically.
func (s *AssignmentService) DeleteAssignment(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if _, err := s.mutable(ctx, actor, id); err != nil {
		return err
	}
	var subs int64
	err := s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if subs, err = s.Store.Submissions.DeleteByAssignment(ctx, id); err != nil {
			return err
		}
		deleted, err := s.Store.Assignments.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.NotFound("assignment")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	s.invalidate(ctx, cache.Key(assignmentKey, id.String()))
	s.Logger.Info("Assignment deleted",
		zap.String("assignment_id", id.String()),
		zap.Int64("submissions", subs))
	return nil
}

// GetAssignmentDetails returns the assignment with its linked exam. Class
// members may read it; students get the exam without answer keys.
func (s *AssignmentService) GetAssignmentDetails(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.AssignmentDetails, error) {
	d, err := cache.Fetch(ctx, s.Cache, cache.Key(assignmentKey, id.String()), s.CacheTTL,
		func(ctx context.Context) (*model.AssignmentDetails, error) {
			a, err := s.Store.Assignments.GetByID(ctx, id)
			if err != nil || a == nil {
				return nil, err
			}
			out := &model.AssignmentDetails{Assignment: *a}
			if a.ExamID != nil {
				if out.Exam, err = s.exams.details(ctx, *a.ExamID); err != nil {
					return nil, err
				}
			}
			return out, nil
		})
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if d == nil {
		return nil, apperr.NotFound("assignment")
	}

	if !access.CanView(actor, access.Assignment(&d.Assignment)) {
		if !inTenant(actor, d.TenantID) {
			return nil, apperr.Forbidden("no access to this assignment")
		}
		member, err := s.Store.ClassUsers.Get(ctx, d.ClassID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("get class member: %w", err)
		}
		if member == nil {
			return nil, apperr.Forbidden("not a member of this class")
		}
	}
	if actor.Role == model.RoleStudent && d.Exam != nil {
		d.Exam = withoutAnswerKey(d.Exam)
	}
	return d, nil
}

func withoutAnswerKey(e *model.ExamDetails) *model.ExamDetails {
	cp := *e
	cp.Questions = make([]model.ExamQuestionDetail, len(e.Questions))
	for i, q := range e.Questions {
		answers := make([]model.Answer, len(q.Answers))
		for j, a := range q.Answers {
			answers[j] = model.Answer{Text: a.Text}
		}
		q.Answers = answers
		cp.Questions[i] = q
	}
	return &cp
}

// ListAssignmentsByClass lists a class's assignments, latest due date first.
func (s *AssignmentService) ListAssignmentsByClass(ctx context.Context, actor model.Actor, classID uuid.UUID, params url.Values) (*query.Result, error) {
	class, member, err := s.classAccess(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if member == nil && !actor.Role.IsAdmin() && class.CreatedBy != actor.ID {
		return nil, apperr.Forbidden("not a member of this class")
	}
	return s.lists.Run(ctx, query.Spec{
		Entity:      query.Assignments,
		Scope:       query.TenantScope(class.TenantID).With(query.Eq("class_id", classID)),
		Params:      params,
		DefaultSort: []query.SortKey{{Field: "due_date", Desc: true}},
		Populate: []query.Populate{
			{Field: "exam_id", Entity: query.Exams, Fields: []string{"title", "duration", "total_points"}},
		},
	})
}
