package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/access"
	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/cache"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type QuestionService struct {
	base
}

func NewQuestionService(d Deps) *QuestionService {
	return &QuestionService{base: newBase(d, "question")}
}

type QuestionInput struct {
	SubjectID  uuid.UUID
	Topic      string
	Difficulty model.Difficulty
	Type       model.QuestionType
	Content    string
	Answers    []model.Answer
	ImageURL   *string
	Tags       []string
	IsPublic   bool
}

// QuestionPatch carries only the fields being changed.
type QuestionPatch struct {
	SubjectID  *uuid.UUID
	Topic      *string
	Difficulty *model.Difficulty
	Type       *model.QuestionType
	Content    *string
	Answers    *[]model.Answer
	ImageURL   *string
	Tags       *[]string
	IsPublic   *bool
}

func validateQuestion(q *model.Question, checkAnswers bool) error {
	var errs fieldErrors
	errs.require(q.SubjectID != uuid.Nil, "subject_id", "required")
	errs.require(q.Topic != "", "topic", "required")
	errs.require(q.Difficulty.Valid(), "difficulty", "must be one of easy, medium, hard")
	errs.require(q.Type.Valid(), "type", "must be multiple_choice or essay")
	errs.require(q.Content != "", "content", "required")
	if err := errs.err("invalid question"); err != nil {
		return err
	}
	if checkAnswers {
		return model.ValidateAnswers(q.Type, q.Answers)
	}
	return nil
}

func (s *QuestionService) CreateQuestion(ctx context.Context, actor model.Actor, in QuestionInput) (*model.Question, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	q := &model.Question{
		ID:         uuid.New(),
		SubjectID:  in.SubjectID,
		Topic:      in.Topic,
		Difficulty: in.Difficulty,
		Type:       in.Type,
		Content:    in.Content,
		Answers:    in.Answers,
		ImageURL:   in.ImageURL,
		Tags:       in.Tags,
		IsPublic:   in.IsPublic,
		CreatedBy:  actor.ID,
	}
	if err := validateQuestion(q, true); err != nil {
		return nil, err
	}
	tenantID, err := s.subjectTenant(ctx, actor, q.SubjectID)
	if err != nil {
		return nil, err
	}
	q.TenantID = tenantID

	if err := s.Store.Questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.Logger.Info("Question created",
		zap.String("question_id", q.ID.String()),
		zap.String("type", string(q.Type)))
	return q, nil
}

func (s *QuestionService) subjectTenant(ctx context.Context, actor model.Actor, subjectID uuid.UUID) (uuid.UUID, error) {
	subject, err := s.Store.Subjects.GetByID(ctx, subjectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get subject: %w", err)
	}
	if subject == nil || !inTenant(actor, subject.TenantID) {
		return uuid.Nil, apperr.Validation("unknown subject", apperr.FieldError{Field: "subject_id", Error: "not found"})
	}
	return subject.TenantID, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Question, error) {
	q, err := cache.Fetch(ctx, s.Cache, cache.Key(questionKey, id.String()), s.CacheTTL,
		func(ctx context.Context) (*model.Question, error) {
			return s.Store.Questions.GetByID(ctx, id)
		})
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return nil, apperr.NotFound("question")
	}
	if !access.CanView(actor, access.Question(q)) {
		return nil, apperr.Forbidden("no access to this question")
	}
	return q, nil
}

func (s *QuestionService) mutable(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Question, error) {
	q, err := s.Store.Questions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if q == nil {
		return nil, apperr.NotFound("question")
	}
	if !access.CanMutate(actor, access.Question(q)) {
		return nil, apperr.Forbidden("only the creator or an administrator may change this question")
	}
	return q, nil
}

// UpdateQuestion applies a patch. The answer invariant is re-checked when the
// answers are replaced or the type becomes multiple_choice.
func (s *QuestionService) UpdateQuestion(ctx context.Context, actor model.Actor, id uuid.UUID, p QuestionPatch) (*model.Question, error) {
	q, err := s.mutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	checkAnswers := false
	if p.SubjectID != nil && *p.SubjectID != q.SubjectID {
		tenantID, err := s.subjectTenant(ctx, actor, *p.SubjectID)
		if err != nil {
			return nil, err
		}
		if tenantID != q.TenantID {
			return nil, apperr.Validation("subject belongs to another tenant")
		}
		q.SubjectID = *p.SubjectID
	}
	if p.Topic != nil {
		q.Topic = *p.Topic
	}
	if p.Difficulty != nil {
		q.Difficulty = *p.Difficulty
	}
	if p.Type != nil {
		checkAnswers = *p.Type != q.Type && *p.Type == model.QuestionMultipleChoice
		q.Type = *p.Type
	}
	if p.Content != nil {
		q.Content = *p.Content
	}
	if p.Answers != nil {
		q.Answers = *p.Answers
		checkAnswers = true
	}
	if p.ImageURL != nil {
		q.ImageURL = p.ImageURL
	}
	if p.Tags != nil {
		q.Tags = *p.Tags
	}
	if p.IsPublic != nil {
		q.IsPublic = *p.IsPublic
	}
	if err := validateQuestion(q, checkAnswers); err != nil {
		return nil, err
	}

	if err := s.Store.Questions.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	s.invalidate(ctx, cache.Key(questionKey, id.String()), examKey+":", assignmentKey+":")
	s.Logger.Info("Question updated", zap.String("question_id", id.String()))
	return q, nil
}

// DeleteQuestion refuses while any exam still links the question.
func (s *QuestionService) DeleteQuestion(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if _, err := s.mutable(ctx, actor, id); err != nil {
		return err
	}
	refs, err := s.Store.Questions.CountExamRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperr.Conflict(fmt.Sprintf("question is used by %d exam(s)", refs))
	}

	deleted, err := s.Store.Questions.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if !deleted {
		return apperr.NotFound("question")
	}
	s.invalidate(ctx, cache.Key(questionKey, id.String()))
	s.Logger.Info("Question deleted", zap.String("question_id", id.String()))
	return nil
}

// ListQuestions lists the bank. Non-admins see their own and public questions.
func (s *QuestionService) ListQuestions(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	scope := query.ScopeFor(actor)
	if !actor.Role.IsAdmin() {
		scope = scope.With(query.AnyOf(
			query.Eq("is_public", true),
			query.Eq("created_by", actor.ID),
		))
	}
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Questions,
		Scope:  scope,
		Params: params,
		Populate: []query.Populate{
			{Field: "subject_id", Entity: query.Subjects, Fields: []string{"name"}},
		},
	})
}
