package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
)

type SubjectRepository struct {
	*base.Repository
}

func NewSubjectRepository(b *base.Repository) *SubjectRepository {
	return &SubjectRepository{Repository: b}
}

// Create creates a new subject
func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	query := `
		INSERT INTO subjects (id, tenant_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	if subject.ID == uuid.Nil {
		subject.ID = uuid.New()
	}
	err := r.QueryRow(ctx, query,
		subject.ID,
		subject.TenantID,
		subject.Name,
		subject.Description,
	).Scan(&subject.CreatedAt, &subject.UpdatedAt)

	if err != nil {
		r.Logger().Error("Failed to insert subject into DB",
			zap.String("tenant_id", subject.TenantID.String()),
			zap.String("name", subject.Name),
			zap.Error(err))
		return base.ClassifyWrite(err, "create subject")
	}

	r.Logger().Info("Subject inserted successfully",
		zap.String("subject_id", subject.ID.String()),
		zap.String("name", subject.Name))
	return nil
}

// GetByID fetches a subject by ID
func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	query := `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM subjects
		WHERE id = $1
	`

	var subject model.Subject
	err := r.QueryRow(ctx, query, id).Scan(
		&subject.ID,
		&subject.TenantID,
		&subject.Name,
		&subject.Description,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by id: %w", err)
	}
	return &subject, nil
}
