package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type SubjectService struct {
	base
}

func NewSubjectService(d Deps) *SubjectService {
	return &SubjectService{base: newBase(d, "subject")}
}

// CreateSubject adds a subject to the actor's school
func (s *SubjectService) CreateSubject(ctx context.Context, actor model.Actor, name, description string) (*model.Subject, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	if actor.IsSysAdmin() {
		return nil, apperr.Validation("subjects belong to a school")
	}
	if name == "" {
		return nil, apperr.Validation("invalid subject", apperr.FieldError{Field: "name", Error: "required"})
	}
	subject := &model.Subject{ID: uuid.New(), TenantID: actor.TenantID, Name: name, Description: description}
	if err := s.Store.Subjects.Create(ctx, subject); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	return subject, nil
}

func (s *SubjectService) ListSubjects(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Subjects,
		Scope:  query.ScopeFor(actor),
		Params: params,
	})
}
