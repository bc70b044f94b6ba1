package models

import (
	"time"

	"github.com/google/uuid"
)

// Nomination is a proposal that a user be awarded a badge, requiring two
// independent confirmations: approval (badge creator's side) and acceptance
// (nominee's side).
//
// State machine: Proposed -> {Approved, Rejected} and, independently,
// Proposed -> {Accepted, Rejected}. The terminal Awarded state is reached only
// when both Approved and Accepted hold and neither path was rejected.
// Rejection is terminal and forecloses approve, accept and further rejects.
//
// Whichever of approve/accept lands second is the one that creates the award;
// the first merely persists its own flag. AwardID is the idempotence guard:
// once set, saving again never creates a second award.
type Nomination struct {
	ID             uuid.UUID  `json:"id"`
	BadgeID        uuid.UUID  `json:"badge_id"`
	NomineeID      uuid.UUID  `json:"nominee_id"`
	CreatorID      *uuid.UUID `json:"creator_id,omitempty"`
	ApproverID     *uuid.UUID `json:"approver_id,omitempty"`
	Accepted       bool       `json:"accepted"`
	RejectedByID   *uuid.UUID `json:"rejected_by_id,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty"`
	AwardID        *uuid.UUID `json:"award_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsApproved reports whether an approver has confirmed the nomination.
func (n *Nomination) IsApproved() bool {
	return n.ApproverID != nil
}

// IsAccepted reports whether the nominee has accepted.
func (n *Nomination) IsAccepted() bool {
	return n.Accepted
}

// IsRejected reports whether the nomination was rejected by either party.
func (n *Nomination) IsRejected() bool {
	return n.RejectedByID != nil
}

// IsAwarded reports whether both confirmations landed and an award exists.
func (n *Nomination) IsAwarded() bool {
	return n.AwardID != nil
}

// ReadyToAward reports whether saving now should create the award.
func (n *Nomination) ReadyToAward() bool {
	return n.IsApproved() && n.IsAccepted() && !n.IsRejected() && !n.IsAwarded()
}

// AllowsApproveBy reports whether the actor may approve: denied once approved
// or rejected, otherwise the system, staff, superusers and the badge creator.
func (n *Nomination) AllowsApproveBy(badge *Badge, actor *User) bool {
	if n.IsApproved() || n.IsRejected() {
		return false
	}
	if actor == nil || actor.Elevated() {
		return true
	}
	return actor.Is(badge.CreatorID)
}

// AllowsAccept reports whether the actor may accept: denied once accepted or
// rejected, otherwise the system, staff, superusers and the nominee.
func (n *Nomination) AllowsAccept(actor *User) bool {
	if n.IsAccepted() || n.IsRejected() {
		return false
	}
	if actor == nil || actor.Elevated() {
		return true
	}
	return actor.ID == n.NomineeID
}

// AllowsRejectBy reports whether the actor may reject: denied once approved or
// rejected, otherwise the system, staff, superusers, the nominee and the badge
// creator.
func (n *Nomination) AllowsRejectBy(badge *Badge, actor *User) bool {
	if n.IsApproved() || n.IsRejected() {
		return false
	}
	if actor == nil || actor.Elevated() {
		return true
	}
	return actor.ID == n.NomineeID || actor.Is(badge.CreatorID)
}

// NominationPermissions is the explicit capability set for a nomination as
// seen by one actor.
type NominationPermissions struct {
	ApproveBy bool `json:"approve_by"`
	Accept    bool `json:"accept"`
	RejectBy  bool `json:"reject_by"`
}

// PermissionsFor computes the capability set for the given actor.
func (n *Nomination) PermissionsFor(badge *Badge, actor *User) NominationPermissions {
	return NominationPermissions{
		ApproveBy: n.AllowsApproveBy(badge, actor),
		Accept:    n.AllowsAccept(actor),
		RejectBy:  n.AllowsRejectBy(badge, actor),
	}
}
