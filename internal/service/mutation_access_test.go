package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

func TestCrossTenantMutationDenied(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	rival := s.otherSchool(t)

	q := s.question(t, s.teacher, model.DifficultyEasy)
	public := true
	_, err := s.questions.UpdateQuestion(ctx, s.teacher, q.ID, service.QuestionPatch{IsPublic: &public})
	require.NoError(t, err)
	a := s.assignment(t, nil)

	topic := "stolen"
	_, err = s.questions.UpdateQuestion(ctx, rival, q.ID, service.QuestionPatch{Topic: &topic})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, s.questions.DeleteQuestion(ctx, rival, q.ID), apperr.ErrForbidden)

	title := "Hijacked"
	_, err = s.assignments.UpdateAssignment(ctx, rival, a.ID, service.AssignmentPatch{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, s.assignments.DeleteAssignment(ctx, rival, a.ID), apperr.ErrForbidden)

	// nothing changed
	got, err := s.questions.GetQuestion(ctx, s.teacher, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "algebra", got.Topic)
	assert.Equal(t, 1, s.db.Len("questions"))
	assert.Equal(t, 1, s.db.Len("assignments"))
}

func TestSameTenantDeleteNeedsOwnership(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	colleague := s.addUser(t, "colleague@lincoln.edu", model.RoleTeacher)

	q := s.question(t, s.teacher, model.DifficultyEasy)
	a := s.assignment(t, nil)

	assert.ErrorIs(t, s.questions.DeleteQuestion(ctx, colleague, q.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, s.questions.DeleteQuestion(ctx, s.student, q.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, s.assignments.DeleteAssignment(ctx, colleague, a.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, s.assignments.DeleteAssignment(ctx, s.student, a.ID), apperr.ErrForbidden)

	assert.NoError(t, s.questions.DeleteQuestion(ctx, s.admin, q.ID))
	assert.NoError(t, s.assignments.DeleteAssignment(ctx, s.admin, a.ID))
}
