package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/cache"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type TenantService struct {
	base
}

func NewTenantService(d Deps) *TenantService {
	return &TenantService{base: newBase(d, "tenant")}
}

type RegisterInput struct {
	SchoolName string
	SchoolCode string
	Plan       model.Plan
	AdminEmail string
	AdminName  string
	AdminPhone string
	Password   string
}

type Registration struct {
	Tenant *model.Tenant `json:"tenant"`
	Admin  *model.User   `json:"admin"`
}

const minPasswordLen = 8

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// RegisterWithAdmin creates a school in trial together with its first
// administrator. Either both rows exist afterwards or neither does.
func (s *TenantService) RegisterWithAdmin(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.AdminEmail = strings.ToLower(strings.TrimSpace(in.AdminEmail))
	if in.Plan == "" {
		in.Plan = model.PlanSmall
	}
	var errs fieldErrors
	errs.require(in.SchoolName != "", "school_name", "required")
	errs.require(in.AdminEmail != "", "admin_email", "required")
	errs.require(in.AdminName != "", "admin_name", "required")
	errs.require(len(in.Password) >= minPasswordLen, "password", fmt.Sprintf("at least %d characters", minPasswordLen))
	errs.require(in.Plan.Valid(), "plan", "must be small, medium or large")
	if err := errs.err("invalid registration"); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	tenant := &model.Tenant{
		ID:                 uuid.New(),
		Name:               in.SchoolName,
		Status:             model.TenantStatusPending,
		Plan:               in.Plan,
		MaxStudents:        in.Plan.MaxStudents(),
		SubscriptionStatus: model.SubscriptionTrial,
		TrialStartDate:     now,
		TrialEndDate:       now.Add(model.TrialPeriod),
	}
	if in.SchoolCode != "" {
		tenant.SchoolCode = &in.SchoolCode
	}
	admin := &model.User{
		ID:           uuid.New(),
		TenantID:     &tenant.ID,
		Email:        in.AdminEmail,
		PasswordHash: hash,
		FullName:     in.AdminName,
		Phone:        in.AdminPhone,
		Role:         model.RoleSchoolAdmin,
		Status:       model.UserStatusActive,
	}

	err = s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Store.Tenants.Create(ctx, tenant); err != nil {
			return err
		}
		if err := s.Store.Users.Create(ctx, admin); err != nil {
			return err
		}
		return s.Store.Tenants.SetAdmin(ctx, tenant.ID, admin.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("register tenant: %w", err)
	}
	tenant.AdminID = &admin.ID

	s.Logger.Info("Tenant registered",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("admin_id", admin.ID.String()),
		zap.String("plan", string(tenant.Plan)))
	return &Registration{Tenant: tenant, Admin: admin}, nil
}

// GetByID is a cached tenant lookup without access checks.
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	return cache.Fetch(ctx, s.Cache, cache.Key(tenantKey, id.String()), s.CacheTTL, func(ctx context.Context) (*model.Tenant, error) {
		t, err := s.Store.Tenants.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get tenant: %w", err)
		}
		if t == nil {
			return nil, apperr.NotFound("tenant")
		}
		return t, nil
	})
}

func (s *TenantService) GetTenant(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Tenant, error) {
	if !inTenant(actor, id) {
		return nil, apperr.Forbidden("tenant belongs to another school")
	}
	return s.GetByID(ctx, id)
}

// ListTenants is reserved to the system administrator.
func (s *TenantService) ListTenants(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	if !actor.IsSysAdmin() {
		return nil, apperr.Forbidden("system administrator role required")
	}
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Tenants,
		Scope:  query.GlobalScope(),
		Params: params,
	})
}
