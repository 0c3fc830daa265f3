package query

import (
	"errors"

	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
)

var ErrUnscoped = errors.New("query: missing tenant scope")

// Scope is the mandatory pre-filter of every list query. The zero value is
// rejected by the pipeline, so a query built without TenantScope, GlobalScope
// or ScopeFor never reaches storage.
type Scope struct {
	tenant uuid.UUID
	global bool
	set    bool
	pre    Expr
}

// TenantScope restricts results to one tenant.
func TenantScope(tenantID uuid.UUID) Scope {
	return Scope{tenant: tenantID, set: true}
}

// GlobalScope spans every tenant. Only sys_admin reads use it.
func GlobalScope() Scope {
	return Scope{global: true, set: true}
}

// ScopeFor picks the scope an actor is entitled to.
func ScopeFor(actor model.Actor) Scope {
	if actor.IsSysAdmin() {
		return GlobalScope()
	}
	return TenantScope(actor.TenantID)
}

// With adds a caller pre-filter, e.g. "mine or public".
func (s Scope) With(e Expr) Scope {
	s.pre = AllOf(s.pre, e)
	return s
}

func (s Scope) IsGlobal() bool { return s.global }

// Where returns the predicate the scope contributes for entity e.
func (s Scope) Where(e *Entity) (Expr, error) {
	if !s.set {
		return nil, ErrUnscoped
	}
	if s.global {
		return s.pre, nil
	}
	if e.TenantColumn == "" {
		if e == Tenants {
			return AllOf(Eq("id", s.tenant), s.pre), nil
		}
		return nil, ErrUnscoped
	}
	return AllOf(Eq(e.TenantColumn, s.tenant), s.pre), nil
}
