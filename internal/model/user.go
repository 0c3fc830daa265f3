package model

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       *uuid.UUID `json:"tenant_id"` // nil for sys_admin
	Email          string     `json:"email"`
	PasswordHash   []byte     `json:"-"`
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone,omitempty"`
	Role           Role       `json:"role"`
	Status         UserStatus `json:"status"`
	TelegramChatID *int64     `json:"telegram_chat_id,omitempty"` // notification target
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive checks if the user may authenticate or act
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Actor converts the user into the descriptor consumed by the core.
func (u *User) Actor() Actor {
	a := Actor{ID: u.ID, Role: u.Role}
	if u.TenantID != nil {
		a.TenantID = *u.TenantID
	}
	return a
}
