package query

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
)

// sliceBackend runs finds over a fixed row set with Match and SortRows.
type sliceBackend struct {
	rows []map[string]any

	mu        sync.Mutex
	lastWhere Expr
	err       error
}

func (b *sliceBackend) filter(e *Entity, where Expr) ([]map[string]any, error) {
	b.mu.Lock()
	b.lastWhere = where
	b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	var out []map[string]any
	for _, r := range b.rows {
		ok, err := Match(e, where, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *sliceBackend) Find(_ context.Context, f Find) ([]map[string]any, error) {
	rows, err := b.filter(f.Entity, f.Where)
	if err != nil {
		return nil, err
	}
	if err := SortRows(f.Entity, rows, f.Sort); err != nil {
		return nil, err
	}
	if f.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[f.Offset:min(len(rows), f.Offset+f.Limit)]
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = Project(r, f.Fields)
	}
	return out, nil
}

func (b *sliceBackend) Count(_ context.Context, e *Entity, where Expr) (int64, error) {
	rows, err := b.filter(e, where)
	return int64(len(rows)), err
}

func subjectRows(tenant uuid.UUID, n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":         uuid.NewString(),
			"tenant_id":  tenant.String(),
			"name":       string(rune('a' + i)),
			"created_at": "2024-01-01T00:00:00Z",
		}
	}
	return rows
}

func TestPipelinePagination(t *testing.T) {
	tenant := uuid.New()
	other := uuid.New()
	backend := &sliceBackend{rows: append(subjectRows(tenant, 45), subjectRows(other, 5)...)}
	p := NewPipeline(backend, zap.NewNop())

	res, err := p.Run(context.Background(), Spec{
		Entity: Subjects,
		Scope:  TenantScope(tenant),
		Params: url.Values{"page": {"3"}, "limit": {"20"}, "sort": {"name"}},
	})
	require.NoError(t, err)

	assert.Len(t, res.Data, 5)
	assert.Equal(t, Pagination{Current: 3, Limit: 20, Total: 45, TotalPages: 3, HasNext: false, HasPrev: true}, res.Pagination)
	for _, r := range res.Data {
		assert.Equal(t, tenant.String(), r["tenant_id"])
	}
}

func TestPipelineEmptyResultIsNotNil(t *testing.T) {
	p := NewPipeline(&sliceBackend{}, zap.NewNop())
	res, err := p.Run(context.Background(), Spec{Entity: Subjects, Scope: TenantScope(uuid.New())})
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, 0, res.Pagination.TotalPages)
	assert.False(t, res.Pagination.HasNext)
}

func TestPipelineRequiresScope(t *testing.T) {
	p := NewPipeline(&sliceBackend{}, zap.NewNop())
	_, err := p.Run(context.Background(), Spec{Entity: Subjects})
	assert.ErrorIs(t, err, ErrUnscoped)
}

func TestPipelineScopeCannotBeWidened(t *testing.T) {
	tenant := uuid.New()
	other := uuid.New()
	backend := &sliceBackend{rows: append(subjectRows(tenant, 2), subjectRows(other, 3)...)}
	p := NewPipeline(backend, zap.NewNop())

	res, err := p.Run(context.Background(), Spec{
		Entity: Subjects,
		Scope:  TenantScope(tenant),
		Params: url.Values{"tenant_id": {other.String()}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, int64(0), res.Pagination.Total)
}

func TestPipelinePropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	p := NewPipeline(&sliceBackend{err: boom}, zap.NewNop())
	_, err := p.Run(context.Background(), Spec{Entity: Subjects, Scope: GlobalScope()})
	assert.ErrorIs(t, err, boom)

	_, err = p.Run(context.Background(), Spec{Entity: Subjects, Scope: GlobalScope(), Params: url.Values{"nope": {"1"}}})
	assert.ErrorIs(t, err, apperr.ErrMalformedQuery)
}

func TestScopeFor(t *testing.T) {
	tenant := uuid.New()

	where, err := ScopeFor(model.Actor{Role: model.RoleSysAdmin}).Where(Exams)
	require.NoError(t, err)
	assert.Nil(t, where)

	where, err = ScopeFor(model.Actor{Role: model.RoleTeacher, TenantID: tenant}).Where(Exams)
	require.NoError(t, err)
	assert.Equal(t, Eq("tenant_id", tenant), where)

	where, err = TenantScope(tenant).With(Eq("created_by", tenant)).Where(Exams)
	require.NoError(t, err)
	assert.Equal(t, And{Eq("tenant_id", tenant), Eq("created_by", tenant)}, where)

	where, err = TenantScope(tenant).Where(Tenants)
	require.NoError(t, err)
	assert.Equal(t, Eq("id", tenant), where)

	_, err = Scope{}.Where(Exams)
	assert.ErrorIs(t, err, ErrUnscoped)
}

func TestBuildPagination(t *testing.T) {
	tests := []struct {
		page, limit int
		total       int64
		want        Pagination
	}{
		{1, 20, 0, Pagination{Current: 1, Limit: 20, Total: 0, TotalPages: 0}},
		{1, 20, 20, Pagination{Current: 1, Limit: 20, Total: 20, TotalPages: 1}},
		{1, 20, 21, Pagination{Current: 1, Limit: 20, Total: 21, TotalPages: 2, HasNext: true}},
		{2, 20, 21, Pagination{Current: 2, Limit: 20, Total: 21, TotalPages: 2, HasPrev: true}},
		{5, 10, 21, Pagination{Current: 5, Limit: 10, Total: 21, TotalPages: 3, HasPrev: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildPagination(tt.page, tt.limit, tt.total))
	}
}
