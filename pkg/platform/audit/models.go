// Package audit records badge lifecycle events out of band. Services publish
// events to a buffered channel and a background worker persists them, so a
// slow audit sink never blocks an award.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionBadgeCreated       Action = "badge_created"
	ActionBadgeEdited        Action = "badge_edited"
	ActionBadgeDeleted       Action = "badge_deleted"
	ActionAwardCreated       Action = "award_created"
	ActionAwardCascaded      Action = "award_cascaded"
	ActionAwardDeleted       Action = "award_deleted"
	ActionProgressCompleted  Action = "progress_completed"
	ActionNominationCreated  Action = "nomination_created"
	ActionNominationApproved Action = "nomination_approved"
	ActionNominationAccepted Action = "nomination_accepted"
	ActionNominationRejected Action = "nomination_rejected"
	ActionDeferredCreated    Action = "deferred_created"
	ActionDeferredClaimed    Action = "deferred_claimed"
	ActionDeferredGranted    Action = "deferred_granted"
	ActionDeferredDeleted    Action = "deferred_deleted"
)

// Event captures one badge lifecycle action. ActorID is nil for
// system-issued actions such as progress completion and cascades.
type Event struct {
	Timestamp time.Time  `json:"timestamp"`
	Action    Action     `json:"action"`
	BadgeID   uuid.UUID  `json:"badge_id"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	SubjectID *uuid.UUID `json:"subject_id,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
