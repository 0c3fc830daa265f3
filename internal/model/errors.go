package model

import "github.com/qh20812/Edu-Core-Server/internal/apperr"

var (
	ErrTooFewAnswers      = apperr.Validation("multiple choice questions must have at least 2 answers", apperr.FieldError{Field: "answers", Error: "min 2"})
	ErrCorrectAnswerCount = apperr.Validation("multiple choice questions must have exactly one correct answer", apperr.FieldError{Field: "answers", Error: "exactly one is_correct"})
)
