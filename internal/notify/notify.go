// Package notify relays entity-changed events to users. Delivery is
// fire-and-forget: a failed dispatch is logged and never reaches the caller.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	AssignmentCreated EventType = "assignment.created"
	SubmissionGraded  EventType = "submission.graded"
	ExamCreated       EventType = "exam.created"
)

type Event struct {
	Type       EventType
	TenantID   uuid.UUID
	Recipients []uuid.UUID
	Title      string
	Body       string
	EntityID   uuid.UUID
	At         time.Time
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Dispatch(context.Context, Event) error { return nil }
