package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
)

func TestValidateAnswers(t *testing.T) {
	right := Answer{Text: "4", IsCorrect: true}
	wrong := Answer{Text: "5"}

	tests := []struct {
		name    string
		typ     QuestionType
		answers []Answer
		wantErr error
	}{
		{"one correct of two", QuestionMultipleChoice, []Answer{right, wrong}, nil},
		{"one correct of four", QuestionMultipleChoice, []Answer{wrong, wrong, right, wrong}, nil},
		{"single answer", QuestionMultipleChoice, []Answer{right}, ErrTooFewAnswers},
		{"no answers", QuestionMultipleChoice, nil, ErrTooFewAnswers},
		{"none correct", QuestionMultipleChoice, []Answer{wrong, wrong}, ErrCorrectAnswerCount},
		{"two correct", QuestionMultipleChoice, []Answer{right, right, wrong}, ErrCorrectAnswerCount},
		{"essay without answers", QuestionEssay, nil, nil},
		{"essay with anything", QuestionEssay, []Answer{right, right}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnswers(tt.typ, tt.answers)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestPlanLimits(t *testing.T) {
	assert.Equal(t, 300, PlanSmall.MaxStudents())
	assert.Equal(t, 700, PlanMedium.MaxStudents())
	assert.Equal(t, 900, PlanLarge.MaxStudents())
	assert.False(t, Plan("huge").Valid())
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleSchoolAdmin.IsAdmin())
	assert.True(t, RoleSysAdmin.IsAdmin())
	assert.False(t, RoleTeacher.IsAdmin())
	assert.True(t, RoleTeacher.CanAuthor())
	assert.False(t, RoleStudent.CanAuthor())
	assert.False(t, Role("janitor").Valid())
}
