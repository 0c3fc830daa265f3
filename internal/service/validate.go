package service

import (
	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
)

type fieldErrors []apperr.FieldError

func (f *fieldErrors) add(field, msg string) {
	*f = append(*f, apperr.FieldError{Field: field, Error: msg})
}

func (f *fieldErrors) require(ok bool, field, msg string) {
	if !ok {
		f.add(field, msg)
	}
}

func (f fieldErrors) err(msg string) error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation(msg, f...)
}

func requireAuthor(actor model.Actor) error {
	if !actor.Role.CanAuthor() {
		return apperr.Forbidden("only teachers and administrators may author content")
	}
	return nil
}

func requireAdmin(actor model.Actor) error {
	if !actor.Role.IsAdmin() {
		return apperr.Forbidden("administrator role required")
	}
	return nil
}

// inTenant is true for sys_admin or when tenantID is the actor's own.
func inTenant(actor model.Actor, tenantID uuid.UUID) bool {
	return actor.IsSysAdmin() || actor.TenantID == tenantID
}
