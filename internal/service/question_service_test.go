package service_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

func TestCreateQuestionValidation(t *testing.T) {
	s := newSchool(t)
	rival := s.otherSchool(t)
	foreign, err := s.subjects.CreateSubject(context.Background(), rival, "Chemistry", "")
	require.NoError(t, err)

	valid := func() service.QuestionInput {
		return service.QuestionInput{
			SubjectID:  s.subject.ID,
			Topic:      "fractions",
			Difficulty: model.DifficultyMedium,
			Type:       model.QuestionMultipleChoice,
			Content:    "1/2 + 1/4 = ?",
			Answers:    []model.Answer{{Text: "3/4", IsCorrect: true}, {Text: "2/6"}},
		}
	}
	tests := []struct {
		name    string
		mutate  func(in *service.QuestionInput)
		wantErr error
	}{
		{"valid", func(*service.QuestionInput) {}, nil},
		{"one answer", func(in *service.QuestionInput) { in.Answers = in.Answers[:1] }, model.ErrTooFewAnswers},
		{"two correct", func(in *service.QuestionInput) { in.Answers[1].IsCorrect = true }, model.ErrCorrectAnswerCount},
		{"essay without answers", func(in *service.QuestionInput) {
			in.Type = model.QuestionEssay
			in.Answers = nil
		}, nil},
		{"missing topic", func(in *service.QuestionInput) { in.Topic = "" }, apperr.ErrValidation},
		{"bad difficulty", func(in *service.QuestionInput) { in.Difficulty = "trivial" }, apperr.ErrValidation},
		{"foreign subject", func(in *service.QuestionInput) { in.SubjectID = foreign.ID }, apperr.ErrValidation},
		{"unknown subject", func(in *service.QuestionInput) { in.SubjectID = uuid.New() }, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			q, err := s.questions.CreateQuestion(context.Background(), s.teacher, in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, s.tenant.ID, q.TenantID)
			assert.Equal(t, s.teacher.ID, q.CreatedBy)
		})
	}

	_, err = s.questions.CreateQuestion(context.Background(), s.student, valid())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateQuestionRechecksAnswers(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	essay, err := s.questions.CreateQuestion(ctx, s.teacher, service.QuestionInput{
		SubjectID:  s.subject.ID,
		Topic:      "proofs",
		Difficulty: model.DifficultyHard,
		Type:       model.QuestionEssay,
		Content:    "Prove it.",
	})
	require.NoError(t, err)

	mc := model.QuestionMultipleChoice
	_, err = s.questions.UpdateQuestion(ctx, s.teacher, essay.ID, service.QuestionPatch{Type: &mc})
	assert.ErrorIs(t, err, model.ErrTooFewAnswers)

	answers := []model.Answer{{Text: "yes", IsCorrect: true}, {Text: "no"}}
	q, err := s.questions.UpdateQuestion(ctx, s.teacher, essay.ID, service.QuestionPatch{Type: &mc, Answers: &answers})
	require.NoError(t, err)
	assert.Equal(t, model.QuestionMultipleChoice, q.Type)

	content := "Is it provable?"
	q, err = s.questions.UpdateQuestion(ctx, s.teacher, essay.ID, service.QuestionPatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "Is it provable?", q.Content)
	assert.Len(t, q.Answers, 2)

	got, err := s.questions.GetQuestion(ctx, s.teacher, essay.ID)
	require.NoError(t, err)
	assert.Equal(t, "Is it provable?", got.Content)
}

func TestUpdateQuestionOwnership(t *testing.T) {
	s := newSchool(t)
	q := s.question(t, s.teacher, model.DifficultyEasy)
	other := s.addUser(t, "other@lincoln.edu", model.RoleTeacher)
	topic := "geometry"
	ctx := context.Background()

	_, err := s.questions.UpdateQuestion(ctx, other, q.ID, service.QuestionPatch{Topic: &topic})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.questions.UpdateQuestion(ctx, s.admin, q.ID, service.QuestionPatch{Topic: &topic})
	assert.NoError(t, err)
	_, err = s.questions.UpdateQuestion(ctx, s.teacher, uuid.New(), service.QuestionPatch{Topic: &topic})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteQuestionWhileReferenced(t *testing.T) {
	s := newSchool(t)
	q := s.question(t, s.teacher, model.DifficultyEasy)
	e := s.exam(t, q)
	ctx := context.Background()

	err := s.questions.DeleteQuestion(ctx, s.teacher, q.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 1, s.db.Len("questions"))

	require.NoError(t, s.exams.DeleteExam(ctx, s.teacher, e.ID))
	require.NoError(t, s.questions.DeleteQuestion(ctx, s.teacher, q.ID))
	assert.Equal(t, 0, s.db.Len("questions"))

	_, err = s.questions.GetQuestion(ctx, s.teacher, q.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestQuestionVisibility(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	private := s.question(t, s.teacher, model.DifficultyEasy)
	public, err := s.questions.CreateQuestion(ctx, s.teacher, service.QuestionInput{
		SubjectID:  s.subject.ID,
		Topic:      "shared",
		Difficulty: model.DifficultyEasy,
		Type:       model.QuestionEssay,
		Content:    "Discuss.",
		IsPublic:   true,
	})
	require.NoError(t, err)
	colleague := s.addUser(t, "colleague@lincoln.edu", model.RoleTeacher)
	rival := s.otherSchool(t)

	_, err = s.questions.GetQuestion(ctx, colleague, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.questions.GetQuestion(ctx, colleague, public.ID)
	assert.NoError(t, err)
	_, err = s.questions.GetQuestion(ctx, rival, public.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	res, err := s.questions.ListQuestions(ctx, colleague, url.Values{})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, public.ID.String(), res.Data[0]["id"])

	res, err = s.questions.ListQuestions(ctx, s.teacher, url.Values{})
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)

	res, err = s.questions.ListQuestions(ctx, rival, url.Values{})
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	res, err = s.questions.ListQuestions(ctx, s.admin, url.Values{"type": {"essay"}})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
}
