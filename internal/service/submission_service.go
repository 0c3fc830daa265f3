package service

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/access"
	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/notify"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type SubmissionService struct {
	base
}

func NewSubmissionService(d Deps) *SubmissionService {
	return &SubmissionService{base: newBase(d, "submission")}
}

// SubmitInput leaves Answers nil or FileURL nil to keep the stored value on
// resubmission.
type SubmitInput struct {
	Answers []model.SubmissionAnswer
	FileURL *string
}

type GradeInput struct {
	Score    float64
	Feedback *string
}

func (s *SubmissionService) assignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a, err := s.Store.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if a == nil {
		return nil, apperr.NotFound("assignment")
	}
	return a, nil
}

// Submit stores the student's work keyed by (assignment, student). It is
// rejected after the due date and for actors who are not students of the
// class. A graded submission cannot be overwritten.
func (s *SubmissionService) Submit(ctx context.Context, actor model.Actor, assignmentID uuid.UUID, in SubmitInput) (*model.Submission, error) {
	hasFile := in.FileURL != nil && *in.FileURL != ""
	if len(in.Answers) == 0 && !hasFile {
		return nil, apperr.Validation("answers or file_url is required")
	}
	if !hasFile {
		in.FileURL = nil
	}

	a, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if now.After(a.DueDate) {
		return nil, apperr.Validation("submission deadline has passed",
			apperr.FieldError{Field: "due_date", Error: a.DueDate.UTC().Format("2006-01-02T15:04:05Z")})
	}
	if !inTenant(actor, a.TenantID) {
		return nil, apperr.Forbidden("assignment belongs to another tenant")
	}
	member, err := s.Store.ClassUsers.Get(ctx, a.ClassID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get class member: %w", err)
	}
	if member == nil || member.RoleInClass != model.ClassRoleStudent {
		return nil, apperr.Forbidden("only students of the class may submit")
	}

	sub := &model.Submission{
		ID:           uuid.New(),
		TenantID:     a.TenantID,
		AssignmentID: a.ID,
		StudentID:    actor.ID,
		Answers:      in.Answers,
		FileURL:      in.FileURL,
		SubmittedAt:  now,
	}
	if err := s.Store.Submissions.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	s.Logger.Info("Submission received",
		zap.String("submission_id", sub.ID.String()),
		zap.String("assignment_id", a.ID.String()),
		zap.String("student_id", actor.ID.String()))
	return sub, nil
}

// canGrade reports whether actor may grade work for assignment a.
func (s *SubmissionService) canGrade(ctx context.Context, actor model.Actor, a *model.Assignment) (bool, error) {
	res := access.Assignment(a)
	if access.CanMutate(actor, res) {
		return true, nil
	}
	member, err := s.Store.ClassUsers.Get(ctx, a.ClassID, actor.ID)
	if err != nil {
		return false, fmt.Errorf("get class member: %w", err)
	}
	teaches := member != nil && member.RoleInClass == model.ClassRoleTeacher
	return access.CanGrade(actor, res, teaches), nil
}

// Grade sets score, feedback, grader and graded_at together.
func (s *SubmissionService) Grade(ctx context.Context, actor model.Actor, submissionID uuid.UUID, in GradeInput) (*model.Submission, error) {
	if !(in.Score >= 0) || math.IsInf(in.Score, 0) {
		return nil, apperr.Validation("invalid grade", apperr.FieldError{Field: "score", Error: "must be a non-negative number"})
	}

	sub, err := s.Store.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub == nil {
		return nil, apperr.NotFound("submission")
	}
	a, err := s.assignment(ctx, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canGrade(ctx, actor, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("only the assignment creator, a class teacher or an administrator may grade")
	}

	graded, err := s.Store.Submissions.Grade(ctx, submissionID, in.Score, in.Feedback, actor.ID, s.Now())
	if err != nil {
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	if graded == nil {
		return nil, apperr.NotFound("submission")
	}

	s.Logger.Info("Submission graded",
		zap.String("submission_id", submissionID.String()),
		zap.Float64("score", in.Score))
	s.emit(ctx, notify.Event{
		Type:       notify.SubmissionGraded,
		TenantID:   graded.TenantID,
		Recipients: []uuid.UUID{graded.StudentID},
		Title:      "Your work for \"" + a.Title + "\" was graded",
		Body:       "Score: " + strconv.FormatFloat(in.Score, 'f', -1, 64),
		EntityID:   graded.ID,
	})
	return graded, nil
}

// ListSubmissionsForAssignment is available to graders only.
func (s *SubmissionService) ListSubmissionsForAssignment(ctx context.Context, actor model.Actor, assignmentID uuid.UUID, params url.Values) (*query.Result, error) {
	a, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canGrade(ctx, actor, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("only graders may list submissions")
	}
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Submissions,
		Scope:  query.TenantScope(a.TenantID).With(query.Eq("assignment_id", a.ID)),
		Params: params,
		Populate: []query.Populate{
			{Field: "student_id", Entity: query.Users, Fields: []string{"full_name", "email"}},
		},
	})
}

func (s *SubmissionService) GetMySubmission(ctx context.Context, actor model.Actor, assignmentID uuid.UUID) (*model.Submission, error) {
	sub, err := s.Store.Submissions.GetByAssignmentStudent(ctx, assignmentID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if sub == nil {
		return nil, apperr.NotFound("submission")
	}
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Submissions,
		Scope:  query.ScopeFor(actor).With(query.Eq("student_id", actor.ID)),
		Params: params,
		Populate: []query.Populate{
			{Field: "assignment_id", Entity: query.Assignments, Fields: []string{"title", "due_date"}},
		},
	})
}
