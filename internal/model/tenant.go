package model

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusApproved  TenantStatus = "approved"
	TenantStatusRejected  TenantStatus = "rejected"
	TenantStatusSuspended TenantStatus = "suspended"
)

type Plan string

const (
	PlanSmall  Plan = "small"
	PlanMedium Plan = "medium"
	PlanLarge  Plan = "large"
)

// planMaxStudents is the student cap granted by each plan tier.
var planMaxStudents = map[Plan]int{
	PlanSmall:  300,
	PlanMedium: 700,
	PlanLarge:  900,
}

// MaxStudents returns the cap for the plan, or 0 for an unknown plan.
func (p Plan) MaxStudents() int {
	return planMaxStudents[p]
}

func (p Plan) Valid() bool {
	_, ok := planMaxStudents[p]
	return ok
}

const (
	SubscriptionTrial    = "trial"
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionExpired  = "expired"
	SubscriptionPending  = "pending"
)

// TrialPeriod is the length of the trial window granted on registration.
const TrialPeriod = 14 * 24 * time.Hour

type Tenant struct {
	ID                    uuid.UUID    `json:"id"`
	Name                  string       `json:"name"`
	SchoolCode            *string      `json:"school_code,omitempty"`
	Status                TenantStatus `json:"status"`
	Plan                  Plan         `json:"plan"`
	MaxStudents           int          `json:"max_students"`
	SubscriptionStatus    string       `json:"subscription_status"`
	SubscriptionStartDate *time.Time   `json:"subscription_start_date,omitempty"`
	SubscriptionEndDate   *time.Time   `json:"subscription_end_date,omitempty"`
	TrialStartDate        time.Time    `json:"trial_start_date"`
	TrialEndDate          time.Time    `json:"trial_end_date"`
	AdminID               *uuid.UUID   `json:"admin_id,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// InTrial checks if the trial window is still open at t
func (t *Tenant) InTrial(at time.Time) bool {
	return t.SubscriptionStatus == SubscriptionTrial && at.Before(t.TrialEndDate)
}
