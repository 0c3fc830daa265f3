package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
)

type AssignmentRepository struct {
	*base.Repository
}

func NewAssignmentRepository(b *base.Repository) *AssignmentRepository {
	return &AssignmentRepository{Repository: b}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	query := `
		INSERT INTO assignments (id, tenant_id, class_id, exam_id, title, description, due_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.QueryRow(ctx, query,
		a.ID, a.TenantID, a.ClassID, a.ExamID, a.Title, a.Description, a.DueDate, a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "create assignment")
	}

	r.Logger().Info("Assignment created",
		zap.String("assignment_id", a.ID.String()),
		zap.String("class_id", a.ClassID.String()),
		zap.Time("due_date", a.DueDate))
	return nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	query := `
		SELECT id, tenant_id, class_id, exam_id, title, description, due_date, created_by, created_at, updated_at
		FROM assignments
		WHERE id = $1
	`
	var a model.Assignment
	err := r.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.TenantID, &a.ClassID, &a.ExamID, &a.Title, &a.Description, &a.DueDate,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment by id: %w", err)
	}
	return &a, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	query := `
		UPDATE assignments
		SET exam_id = $2, title = $3, description = $4, due_date = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.QueryRow(ctx, query, a.ID, a.ExamID, a.Title, a.Description, a.DueDate).Scan(&a.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update assignment: %w", apperr.NotFound("assignment"))
		}
		return base.ClassifyWrite(err, "update assignment")
	}
	return nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return false, base.ClassifyDelete(err, "delete assignment")
	}
	return n > 0, nil
}
