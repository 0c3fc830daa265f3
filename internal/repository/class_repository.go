package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
)

type ClassRepository struct {
	*base.Repository
}

func NewClassRepository(b *base.Repository) *ClassRepository {
	return &ClassRepository{Repository: b}
}

func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	query := `
		INSERT INTO classes (id, tenant_id, name, grade, subject_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.QueryRow(ctx, query, c.ID, c.TenantID, c.Name, c.Grade, c.SubjectID, c.CreatedBy).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "create class")
	}

	r.Logger().Info("Class created",
		zap.String("class_id", c.ID.String()),
		zap.String("tenant_id", c.TenantID.String()))
	return nil
}

func (r *ClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	query := `
		SELECT id, tenant_id, name, grade, subject_id, created_by, created_at, updated_at
		FROM classes
		WHERE id = $1
	`
	var c model.Class
	err := r.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Grade, &c.SubjectID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class by id: %w", err)
	}
	return &c, nil
}

type ClassUserRepository struct {
	*base.Repository
}

func NewClassUserRepository(b *base.Repository) *ClassUserRepository {
	return &ClassUserRepository{Repository: b}
}

// Add inserts a membership; an existing (class, user) pair is a conflict
func (r *ClassUserRepository) Add(ctx context.Context, m *model.ClassUser) error {
	query := `
		INSERT INTO class_users (class_id, user_id, tenant_id, role_in_class)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.QueryRow(ctx, query, m.ClassID, m.UserID, m.TenantID, m.RoleInClass).Scan(&m.CreatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "add class member")
	}
	return nil
}

func (r *ClassUserRepository) Remove(ctx context.Context, classID, userID uuid.UUID) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM class_users WHERE class_id = $1 AND user_id = $2`, classID, userID)
	if err != nil {
		return false, fmt.Errorf("remove class member: %w", err)
	}
	return n > 0, nil
}

func (r *ClassUserRepository) Get(ctx context.Context, classID, userID uuid.UUID) (*model.ClassUser, error) {
	query := `
		SELECT class_id, user_id, tenant_id, role_in_class, created_at
		FROM class_users
		WHERE class_id = $1 AND user_id = $2
	`
	var m model.ClassUser
	err := r.QueryRow(ctx, query, classID, userID).Scan(&m.ClassID, &m.UserID, &m.TenantID, &m.RoleInClass, &m.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class member: %w", err)
	}
	return &m, nil
}

func (r *ClassUserRepository) ListByRole(ctx context.Context, classID uuid.UUID, role model.ClassRole) ([]*model.ClassUser, error) {
	query := `
		SELECT class_id, user_id, tenant_id, role_in_class, created_at
		FROM class_users
		WHERE class_id = $1 AND role_in_class = $2
		ORDER BY created_at
	`
	rows, err := r.Query(ctx, query, classID, role)
	if err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	defer rows.Close()

	var members []*model.ClassUser
	for rows.Next() {
		var m model.ClassUser
		if err := rows.Scan(&m.ClassID, &m.UserID, &m.TenantID, &m.RoleInClass, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan class member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
