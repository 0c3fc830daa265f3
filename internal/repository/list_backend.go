package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/query"
	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
)

// ListBackend runs query pipeline reads against Postgres.
type ListBackend struct {
	*base.Repository
}

func NewListBackend(b *base.Repository) *ListBackend {
	return &ListBackend{Repository: b}
}

func (r *ListBackend) Find(ctx context.Context, f query.Find) ([]map[string]any, error) {
	sql, args, err := query.SelectSQL(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.Query(ctx, sql, args...)
	if err != nil {
		r.Logger().Error("List query failed", zap.String("sql", sql), zap.Error(err))
		return nil, fmt.Errorf("find %s: %w", f.Entity.Name, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", f.Entity.Name, err)
	}
	return out, nil
}

func (r *ListBackend) Count(ctx context.Context, e *query.Entity, where query.Expr) (int64, error) {
	sql, args, err := query.CountSQL(e, where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", e.Name, err)
	}
	return n, nil
}
