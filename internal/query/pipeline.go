package query

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Backend executes resolved reads. Count must ignore paging.
type Backend interface {
	Find(ctx context.Context, f Find) ([]map[string]any, error)
	Count(ctx context.Context, e *Entity, where Expr) (int64, error)
}

type Pagination struct {
	Current    int   `json:"current"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type Result struct {
	Data       []map[string]any `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// Spec is one list request.
type Spec struct {
	Entity   *Entity
	Scope    Scope
	Params   url.Values
	Populate []Populate
	// DefaultSort replaces the entity default when set.
	DefaultSort []SortKey
}

type Pipeline struct {
	backend Backend
	logger  *zap.Logger
}

func NewPipeline(backend Backend, logger *zap.Logger) *Pipeline {
	return &Pipeline{backend: backend, logger: logger}
}

// Run parses, scopes and executes a list request. The page and the total are
// fetched concurrently from the same predicate.
func (p *Pipeline) Run(ctx context.Context, spec Spec) (*Result, error) {
	scoped, err := spec.Scope.Where(spec.Entity)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", spec.Entity.Name, err)
	}
	req, err := Parse(spec.Entity, spec.Params, spec.DefaultSort...)
	if err != nil {
		return nil, err
	}
	where := AllOf(scoped, req.Filter)

	var (
		rows  []map[string]any
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = p.backend.Find(gctx, Find{
			Entity:   spec.Entity,
			Where:    where,
			Sort:     req.Sort,
			Fields:   req.Fields,
			Offset:   req.Offset(),
			Limit:    req.Limit,
			Populate: spec.Populate,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.backend.Count(gctx, spec.Entity, where)
		return err
	})
	if err := g.Wait(); err != nil {
		p.logger.Error("List query failed",
			zap.String("entity", spec.Entity.Name),
			zap.Error(err))
		return nil, fmt.Errorf("list %s: %w", spec.Entity.Name, err)
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return &Result{Data: rows, Pagination: BuildPagination(req.Page, req.Limit, total)}, nil
}

func BuildPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Current:    page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}
