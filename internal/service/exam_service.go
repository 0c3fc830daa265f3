package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/access"
	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/cache"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/notify"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type ExamService struct {
	base
}

func NewExamService(d Deps) *ExamService {
	return &ExamService{base: newBase(d, "exam")}
}

type ExamHeader struct {
	SubjectID    uuid.UUID
	Title        string
	Description  string
	Duration     int
	TotalPoints  float64
	IsRandomized bool
}

type CreateExamInput struct {
	ExamHeader
	Questions []model.QuestionRef
}

type GenerateExamInput struct {
	ExamHeader
	Distribution   map[model.Difficulty]int
	TotalQuestions int
}

type UpdateExamInput struct {
	Title        *string
	Description  *string
	Duration     *int
	TotalPoints  *float64
	IsRandomized *bool
}

// LinkFailure is a question that LinkQuestionsBestEffort skipped.
type LinkFailure struct {
	QuestionID uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

type LinkResult struct {
	Added   int           `json:"added"`
	Skipped []LinkFailure `json:"skipped,omitempty"`
}

func (h ExamHeader) validate(errs *fieldErrors) {
	errs.require(h.SubjectID != uuid.Nil, "subject_id", "required")
	errs.require(h.Title != "", "title", "required")
	errs.require(h.Duration > 0, "duration", "must be positive")
	errs.require(h.TotalPoints > 0, "total_points", "must be positive")
}

func validateRefs(refs []model.QuestionRef, errs *fieldErrors) {
	if len(refs) == 0 {
		errs.add("questions", "at least one question is required")
		return
	}
	for i, r := range refs {
		if r.QuestionID == uuid.Nil {
			errs.add(fmt.Sprintf("questions[%d].question_id", i), "required")
		}
		if !(r.Points > 0) || math.IsInf(r.Points, 0) {
			errs.add(fmt.Sprintf("questions[%d].points", i), "must be a positive number")
		}
		if r.Order < 0 {
			errs.add(fmt.Sprintf("questions[%d].order", i), "must not be negative")
		}
	}
}

// resolveTenant checks the actor may author an exam for the subject and
// returns the tenant the exam belongs to.
func (s *ExamService) resolveTenant(ctx context.Context, actor model.Actor, subjectID uuid.UUID) (uuid.UUID, error) {
	if err := requireAuthor(actor); err != nil {
		return uuid.Nil, err
	}
	subject, err := s.Store.Subjects.GetByID(ctx, subjectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get subject: %w", err)
	}
	if subject == nil || !inTenant(actor, subject.TenantID) {
		return uuid.Nil, apperr.Validation("unknown subject", apperr.FieldError{Field: "subject_id", Error: "not found"})
	}
	return subject.TenantID, nil
}

// CreateExamAtomic creates the exam and every requested link in one
// transaction. Any failed link, a duplicate included, aborts the whole unit.
func (s *ExamService) CreateExamAtomic(ctx context.Context, actor model.Actor, in CreateExamInput) (*model.ExamDetails, error) {
	var errs fieldErrors
	in.validate(&errs)
	validateRefs(in.Questions, &errs)
	if err := errs.err("invalid exam"); err != nil {
		return nil, err
	}

	tenantID, err := s.resolveTenant(ctx, actor, in.SubjectID)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuestionsUsable(ctx, tenantID, in.Questions); err != nil {
		return nil, err
	}

	exam := newExam(in.ExamHeader, tenantID, actor.ID)
	err = s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Store.Exams.Create(ctx, exam); err != nil {
			return err
		}
		for i, ref := range in.Questions {
			order := ref.Order
			if order == 0 {
				order = i + 1
			}
			link := &model.ExamQuestion{
				ExamID:     exam.ID,
				QuestionID: ref.QuestionID,
				TenantID:   tenantID,
				Points:     ref.Points,
				Order:      order,
			}
			if err := s.Store.ExamQuestions.Insert(ctx, link); err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Exam creation rolled back",
			zap.String("actor_id", actor.ID.String()),
			zap.Int("questions", len(in.Questions)),
			zap.Error(err))
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.Logger.Info("Exam created",
		zap.String("exam_id", exam.ID.String()),
		zap.Int("questions", len(in.Questions)))
	s.announce(ctx, exam)
	return s.loadDetails(ctx, exam)
}

// checkQuestionsUsable rejects ids that do not exist in the exam's tenant.
// Repeated ids pass here and fail on the unique link key.
func (s *ExamService) checkQuestionsUsable(ctx context.Context, tenantID uuid.UUID, refs []model.QuestionRef) error {
	distinct := make(map[uuid.UUID]struct{}, len(refs))
	ids := make([]uuid.UUID, 0, len(refs))
	for _, r := range refs {
		if _, ok := distinct[r.QuestionID]; !ok {
			distinct[r.QuestionID] = struct{}{}
			ids = append(ids, r.QuestionID)
		}
	}
	n, err := s.Store.Questions.CountUsable(ctx, tenantID, ids)
	if err != nil {
		return fmt.Errorf("check questions: %w", err)
	}
	if n != len(ids) {
		return apperr.Validation("some questions do not exist",
			apperr.FieldError{Field: "questions", Error: fmt.Sprintf("%d of %d found", n, len(ids))})
	}
	return nil
}

// GenerateExam builds an exam by stratified random sampling. Every bucket is
// sampled before anything is written, so a shortfall leaves no rows behind.
func (s *ExamService) GenerateExam(ctx context.Context, actor model.Actor, in GenerateExamInput) (*model.ExamDetails, error) {
	var errs fieldErrors
	in.validate(&errs)
	errs.require(in.TotalQuestions > 0, "total_questions", "must be positive")
	requested := 0
	for d, n := range in.Distribution {
		if !d.Valid() {
			errs.add("difficulty_distribution", fmt.Sprintf("unknown difficulty %q", d))
		}
		if n < 0 {
			errs.add("difficulty_distribution."+string(d), "must not be negative")
		}
		requested += n
	}
	errs.require(requested > 0, "difficulty_distribution", "at least one question is required")
	if err := errs.err("invalid exam"); err != nil {
		return nil, err
	}

	tenantID, err := s.resolveTenant(ctx, actor, in.SubjectID)
	if err != nil {
		return nil, err
	}

	var picked []uuid.UUID
	for _, d := range model.Difficulties {
		want := in.Distribution[d]
		if want == 0 {
			continue
		}
		ids, err := s.Store.Questions.SampleIDs(ctx, tenantID, in.SubjectID, d, want)
		if err != nil {
			return nil, fmt.Errorf("sample %s questions: %w", d, err)
		}
		if len(ids) < want {
			s.Logger.Info("Question bank exhausted",
				zap.String("difficulty", string(d)),
				zap.Int("found", len(ids)),
				zap.Int("needed", want))
			return nil, &apperr.ShortfallError{Difficulty: string(d), Found: len(ids), Needed: want}
		}
		picked = append(picked, ids...)
	}

	if len(picked) != in.TotalQuestions {
		return nil, apperr.Validation("question count mismatch",
			apperr.FieldError{Field: "total_questions", Error: fmt.Sprintf("distribution yields %d, expected %d", len(picked), in.TotalQuestions)})
	}
	points := math.Floor(in.TotalPoints / float64(in.TotalQuestions))
	if points <= 0 {
		return nil, apperr.Validation("total_points too small for the number of questions",
			apperr.FieldError{Field: "total_points", Error: "must be at least total_questions"})
	}

	exam := newExam(in.ExamHeader, tenantID, actor.ID)
	err = s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Store.Exams.Create(ctx, exam); err != nil {
			return err
		}
		for i, id := range picked {
			link := &model.ExamQuestion{
				ExamID:     exam.ID,
				QuestionID: id,
				TenantID:   tenantID,
				Points:     points,
				Order:      i + 1,
			}
			if err := s.Store.ExamQuestions.Insert(ctx, link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate exam: %w", err)
	}

	s.Logger.Info("Exam generated",
		zap.String("exam_id", exam.ID.String()),
		zap.Int("questions", len(picked)),
		zap.Float64("points_each", points))
	s.announce(ctx, exam)
	return s.loadDetails(ctx, exam)
}

// dropCached forgets the exam and every assignment view embedding exams.
func (s *ExamService) dropCached(ctx context.Context, id uuid.UUID) {
	s.invalidate(ctx, cache.Key(examKey, id.String()), assignmentKey+":")
}

func newExam(h ExamHeader, tenantID, creator uuid.UUID) *model.Exam {
	return &model.Exam{
		ID:           uuid.New(),
		TenantID:     tenantID,
		SubjectID:    h.SubjectID,
		Title:        h.Title,
		Description:  h.Description,
		Duration:     h.Duration,
		TotalPoints:  h.TotalPoints,
		IsRandomized: h.IsRandomized,
		CreatedBy:    creator,
	}
}

func (s *ExamService) announce(ctx context.Context, exam *model.Exam) {
	s.emit(ctx, notify.Event{
		Type:       notify.ExamCreated,
		TenantID:   exam.TenantID,
		Recipients: []uuid.UUID{exam.CreatedBy},
		Title:      "Exam created",
		Body:       exam.Title,
		EntityID:   exam.ID,
	})
}

func (s *ExamService) loadDetails(ctx context.Context, exam *model.Exam) (*model.ExamDetails, error) {
	qs, err := s.Store.ExamQuestions.ListDetails(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("load exam questions: %w", err)
	}
	return &model.ExamDetails{Exam: *exam, Questions: qs}, nil
}

// details is the cached read of an exam with its ordered questions.
func (s *ExamService) details(ctx context.Context, id uuid.UUID) (*model.ExamDetails, error) {
	return cache.Fetch(ctx, s.Cache, cache.Key(examKey, id.String()), s.CacheTTL,
		func(ctx context.Context) (*model.ExamDetails, error) {
			exam, err := s.Store.Exams.GetByID(ctx, id)
			if err != nil || exam == nil {
				return nil, err
			}
			return s.loadDetails(ctx, exam)
		})
}

// GetExamDetails returns the exam and its questions ordered by position.
func (s *ExamService) GetExamDetails(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ExamDetails, error) {
	d, err := s.details(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if d == nil {
		return nil, apperr.NotFound("exam")
	}
	if !access.CanView(actor, access.Exam(&d.Exam)) {
		return nil, apperr.Forbidden("no access to this exam")
	}
	return d, nil
}

// ListExams lists exams in the actor's scope. Non-admins see their own only.
func (s *ExamService) ListExams(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	scope := query.ScopeFor(actor)
	if !actor.Role.IsAdmin() {
		scope = scope.With(query.Eq("created_by", actor.ID))
	}
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Exams,
		Scope:  scope,
		Params: params,
		Populate: []query.Populate{
			{Field: "subject_id", Entity: query.Subjects, Fields: []string{"name"}},
			{Field: "created_by", Entity: query.Users, Fields: []string{"full_name", "email"}},
		},
	})
}

// mutable loads an exam and checks ownership-or-admin.
func (s *ExamService) mutable(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.Store.Exams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, apperr.NotFound("exam")
	}
	if !access.CanMutate(actor, access.Exam(exam)) {
		return nil, apperr.Forbidden("only the creator or an administrator may change this exam")
	}
	return exam, nil
}

func (s *ExamService) UpdateExam(ctx context.Context, actor model.Actor, id uuid.UUID, in UpdateExamInput) (*model.Exam, error) {
	var errs fieldErrors
	if in.Title != nil {
		errs.require(*in.Title != "", "title", "must not be empty")
	}
	if in.Duration != nil {
		errs.require(*in.Duration > 0, "duration", "must be positive")
	}
	if in.TotalPoints != nil {
		errs.require(*in.TotalPoints > 0, "total_points", "must be positive")
	}
	if err := errs.err("invalid exam update"); err != nil {
		return nil, err
	}

	exam, err := s.mutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		exam.Title = *in.Title
	}
	if in.Description != nil {
		exam.Description = *in.Description
	}
	if in.Duration != nil {
		exam.Duration = *in.Duration
	}
	if in.TotalPoints != nil {
		exam.TotalPoints = *in.TotalPoints
	}
	if in.IsRandomized != nil {
		exam.IsRandomized = *in.IsRandomized
	}
	if err := s.Store.Exams.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.dropCached(ctx, id)
	s.Logger.Info("Exam updated", zap.String("exam_id", id.String()))
	return exam, nil
}

// LinkQuestionsBestEffort adds questions to an existing exam one row at a
// time. Duplicates and unusable questions are skipped and reported; only an
// infrastructure failure stops the batch.
func (s *ExamService) LinkQuestionsBestEffort(ctx context.Context, actor model.Actor, examID uuid.UUID, refs []model.QuestionRef) (*LinkResult, error) {
	var errs fieldErrors
	validateRefs(refs, &errs)
	if err := errs.err("invalid questions"); err != nil {
		return nil, err
	}

	exam, err := s.mutable(ctx, actor, examID)
	if err != nil {
		return nil, err
	}
	res := &LinkResult{}
	for _, ref := range refs {
		q, err := s.Store.Questions.GetByID(ctx, ref.QuestionID)
		if err != nil {
			return res, fmt.Errorf("get question: %w", err)
		}
		if q == nil || q.TenantID != exam.TenantID {
			res.Skipped = append(res.Skipped, LinkFailure{QuestionID: ref.QuestionID, Reason: "question not found"})
			continue
		}

		// Order 0 appends; the exam lock keeps concurrent appends apart
		link := &model.ExamQuestion{
			ExamID:     examID,
			QuestionID: ref.QuestionID,
			TenantID:   exam.TenantID,
			Points:     ref.Points,
			Order:      ref.Order,
		}
		err = s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
			found, err := s.Store.Exams.LockForUpdate(ctx, examID)
			if err != nil {
				return err
			}
			if !found {
				return apperr.NotFound("exam")
			}
			return s.Store.ExamQuestions.Insert(ctx, link)
		})
		switch {
		case err == nil:
			res.Added++
		case errors.Is(err, apperr.ErrConflict):
			res.Skipped = append(res.Skipped, LinkFailure{QuestionID: ref.QuestionID, Reason: "already in exam"})
		case errors.Is(err, apperr.ErrValidation):
			res.Skipped = append(res.Skipped, LinkFailure{QuestionID: ref.QuestionID, Reason: err.Error()})
		default:
			return res, fmt.Errorf("link questions: %w", err)
		}
	}

	if res.Added > 0 {
		s.dropCached(ctx, examID)
	}
	s.Logger.Info("Questions linked",
		zap.String("exam_id", examID.String()),
		zap.Int("added", res.Added),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// RemoveQuestion deletes one (exam, question) link.
func (s *ExamService) RemoveQuestion(ctx context.Context, actor model.Actor, examID, questionID uuid.UUID) error {
	if _, err := s.mutable(ctx, actor, examID); err != nil {
		return err
	}
	removed, err := s.Store.ExamQuestions.Delete(ctx, examID, questionID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("exam question")
	}
	s.dropCached(ctx, examID)
	return nil
}

// DeleteExam removes the links, then the exam, atomically.
func (s *ExamService) DeleteExam(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if _, err := s.mutable(ctx, actor, id); err != nil {
		return err
	}

	var links int64
	err := s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if links, err = s.Store.ExamQuestions.DeleteByExam(ctx, id); err != nil {
			return err
		}
		deleted, err := s.Store.Exams.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.NotFound("exam")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}

	s.dropCached(ctx, id)
	s.Logger.Info("Exam deleted",
		zap.String("exam_id", id.String()),
		zap.Int64("links", links))
	return nil
}
