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

type TenantRepository struct {
	*base.Repository
}

func NewTenantRepository(b *base.Repository) *TenantRepository {
	return &TenantRepository{Repository: b}
}

const tenantColumns = `id, name, school_code, status, plan, max_students, subscription_status,
	subscription_start_date, subscription_end_date, trial_start_date, trial_end_date, admin_id,
	created_at, updated_at`

// Create inserts a tenant
func (r *TenantRepository) Create(ctx context.Context, t *model.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, school_code, status, plan, max_students, subscription_status,
			trial_start_date, trial_end_date, admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.QueryRow(ctx, query,
		t.ID, t.Name, t.SchoolCode, t.Status, t.Plan, t.MaxStudents, t.SubscriptionStatus,
		t.TrialStartDate, t.TrialEndDate, t.AdminID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "create tenant")
	}

	r.Logger().Info("Tenant created",
		zap.String("tenant_id", t.ID.String()),
		zap.String("plan", string(t.Plan)))
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	var t model.Tenant
	err := r.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.SchoolCode, &t.Status, &t.Plan, &t.MaxStudents, &t.SubscriptionStatus,
		&t.SubscriptionStartDate, &t.SubscriptionEndDate, &t.TrialStartDate, &t.TrialEndDate, &t.AdminID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return &t, nil
}

// SetAdmin records the tenant's first administrator
func (r *TenantRepository) SetAdmin(ctx context.Context, tenantID, adminID uuid.UUID) error {
	n, err := r.ExecAffected(ctx,
		`UPDATE tenants SET admin_id = $2, updated_at = now() WHERE id = $1`, tenantID, adminID)
	if err != nil {
		return base.ClassifyWrite(err, "set tenant admin")
	}
	if n == 0 {
		return fmt.Errorf("set tenant admin: %w", apperr.NotFound("tenant"))
	}
	return nil
}

// LockForUpdate serializes writers that depend on tenant-wide counts
func (r *TenantRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (bool, error) {
	var locked uuid.UUID
	err := r.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lock tenant: %w", err)
	}
	return true, nil
}
