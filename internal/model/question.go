package model

import (
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the buckets in sampling order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionEssay          QuestionType = "essay"
)

func (t QuestionType) Valid() bool {
	return t == QuestionMultipleChoice || t == QuestionEssay
}

type Answer struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	ID         uuid.UUID    `json:"id"`
	TenantID   uuid.UUID    `json:"tenant_id"`
	SubjectID  uuid.UUID    `json:"subject_id"`
	Topic      string       `json:"topic"`
	Difficulty Difficulty   `json:"difficulty"`
	Type       QuestionType `json:"type"`
	Content    string       `json:"content"`
	Answers    []Answer     `json:"answers"`
	ImageURL   *string      `json:"image_url,omitempty"`
	Tags       []string     `json:"tags"`
	IsPublic   bool         `json:"is_public"`
	CreatedBy  uuid.UUID    `json:"created_by"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ValidateAnswers enforces the multiple-choice shape: at least two answers,
// exactly one of them correct. Essay questions carry no constraint.
func ValidateAnswers(t QuestionType, answers []Answer) error {
	if t != QuestionMultipleChoice {
		return nil
	}
	if len(answers) < 2 {
		return ErrTooFewAnswers
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return ErrCorrectAnswerCount
	}
	return nil
}
