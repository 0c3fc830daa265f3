package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	base
	tenants *TenantService
}

func NewUserService(d Deps, tenants *TenantService) *UserService {
	return &UserService{base: newBase(d, "user"), tenants: tenants}
}

type UserInput struct {
	TenantID       *uuid.UUID
	Email          string
	Password       string
	FullName       string
	Phone          string
	Role           model.Role
	TelegramChatID *int64
}

// CreateUser adds an account. School admins create users in their own school
// only; active students are capped by the school's plan.
func (s *UserService) CreateUser(ctx context.Context, actor model.Actor, in UserInput) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if !actor.IsSysAdmin() {
		in.TenantID = &actor.TenantID
	}

	var errs fieldErrors
	errs.require(in.Email != "", "email", "required")
	errs.require(in.FullName != "", "full_name", "required")
	errs.require(len(in.Password) >= minPasswordLen, "password", fmt.Sprintf("at least %d characters", minPasswordLen))
	errs.require(in.Role.Valid(), "role", "unknown role")
	if in.Role == model.RoleSysAdmin {
		errs.require(actor.IsSysAdmin(), "role", "cannot grant sys_admin")
		errs.require(in.TenantID == nil, "tenant_id", "sys_admin has no school")
	} else {
		errs.require(in.TenantID != nil, "tenant_id", "required")
	}
	if err := errs.err("invalid user"); err != nil {
		return nil, err
	}

	var tenant *model.Tenant
	if in.TenantID != nil {
		var err error
		if tenant, err = s.tenants.GetByID(ctx, *in.TenantID); err != nil {
			return nil, err
		}
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:             uuid.New(),
		TenantID:       in.TenantID,
		Email:          in.Email,
		PasswordHash:   hash,
		FullName:       in.FullName,
		Phone:          in.Phone,
		Role:           in.Role,
		Status:         model.UserStatusActive,
		TelegramChatID: in.TelegramChatID,
	}

	err = s.Store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if tenant != nil && in.Role == model.RoleStudent {
			// the tenant row lock keeps concurrent creations from passing the cap together
			found, err := s.Store.Tenants.LockForUpdate(ctx, tenant.ID)
			if err != nil {
				return err
			}
			if !found {
				return apperr.NotFound("tenant")
			}
			active, err := s.Store.Users.CountByRole(ctx, tenant.ID, model.RoleStudent, model.UserStatusActive)
			if err != nil {
				return fmt.Errorf("count students: %w", err)
			}
			if active >= tenant.MaxStudents {
				return apperr.Validationf("student limit of %d reached for plan %s", tenant.MaxStudents, tenant.Plan)
			}
		}
		return s.Store.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Logger.Info("User created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate checks credentials and returns the active account.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.Store.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return nil, apperr.Forbidden("account is not active")
	}
	return u, nil
}

// ActorFor reloads the account behind a token so that suspended users lose
// access immediately.
func (s *UserService) ActorFor(ctx context.Context, userID uuid.UUID) (model.Actor, error) {
	u, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return model.Actor{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return model.Actor{}, apperr.NotFound("user")
	}
	if !u.IsActive() {
		return model.Actor{}, apperr.Forbidden("account is not active")
	}
	return u.Actor(), nil
}

func (s *UserService) ListUsers(ctx context.Context, actor model.Actor, params url.Values) (*query.Result, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.lists.Run(ctx, query.Spec{
		Entity: query.Users,
		Scope:  query.ScopeFor(actor),
		Params: params,
	})
}
