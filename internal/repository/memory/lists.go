package memory

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/qh20812/Edu-Core-Server/internal/query"
)

// listBackend evaluates query pipeline reads over JSON-decoded rows, the
// same shape the Postgres backend returns.
type listBackend struct{ db *DB }

func (b listBackend) rows(ctx context.Context, table string) ([]map[string]any, error) {
	var src []any
	b.db.read(ctx, func(tb *tables) {
		switch table {
		case "tenants":
			src = values(tb.tenants)
		case "users":
			src = values(tb.users)
		case "subjects":
			src = values(tb.subjects)
		case "classes":
			src = values(tb.classes)
		case "questions":
			src = values(tb.questions)
		case "exams":
			src = values(tb.exams)
		case "assignments":
			src = values(tb.assignments)
		case "submissions":
			src = values(tb.submissions)
		}
	})
	if src == nil {
		if _, ok := query.Entities[table]; !ok {
			return nil, fmt.Errorf("unknown table %q", table)
		}
		return nil, nil
	}

	out := make([]map[string]any, 0, len(src))
	for _, v := range src {
		raw, err := sonic.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s row: %w", table, err)
		}
		var row map[string]any
		if err := sonic.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", table, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func values[K comparable, V any](m map[K]*V) []any {
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func (b listBackend) filter(ctx context.Context, e *query.Entity, where query.Expr) ([]map[string]any, error) {
	all, err := b.rows(ctx, e.Table)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, row := range all {
		ok, err := query.Match(e, where, row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (b listBackend) Find(ctx context.Context, f query.Find) ([]map[string]any, error) {
	rows, err := b.filter(ctx, f.Entity, f.Where)
	if err != nil {
		return nil, err
	}
	if err := query.SortRows(f.Entity, rows, f.Sort); err != nil {
		return nil, err
	}

	if f.Offset < 0 || f.Offset >= len(rows) {
		return []map[string]any{}, nil
	}
	rows = rows[f.Offset:]
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, query.Project(row, f.Fields))
	}
	for _, p := range f.Populate {
		if err := b.populate(ctx, out, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b listBackend) populate(ctx context.Context, rows []map[string]any, p query.Populate) error {
	targets, err := b.rows(ctx, p.Entity.Table)
	if err != nil {
		return err
	}
	byID := make(map[string]map[string]any, len(targets))
	for _, t := range targets {
		if id, ok := t["id"].(string); ok {
			byID[id] = t
		}
	}
	fields := append([]string{"id"}, p.Fields...)
	for _, f := range fields {
		if !p.Entity.Exposed(f) {
			return fmt.Errorf("cannot populate %s.%s", p.Entity.Name, f)
		}
	}
	for _, row := range rows {
		ref, ok := row[p.Field].(string)
		if !ok {
			continue
		}
		if target, ok := byID[ref]; ok {
			row[p.Field] = query.Project(target, fields)
		} else {
			row[p.Field] = nil
		}
	}
	return nil
}

func (b listBackend) Count(ctx context.Context, e *query.Entity, where query.Expr) (int64, error) {
	rows, err := b.filter(ctx, e, where)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
