package models

import (
	"time"

	"github.com/google/uuid"
)

// DeferredAward is a pending award not yet bound to a registered account,
// addressed by email and/or a short random claim code.
//
// Invariant: when the badge is unique, at most one deferred award exists per
// (badge, email) — the pre-registration mirror of the award uniqueness rule.
//
// A reusable deferred award survives claiming and can be redeemed by any
// number of users; a non-reusable one self-destructs on first claim.
type DeferredAward struct {
	ID          uuid.UUID `json:"id"`
	BadgeID     uuid.UUID `json:"badge_id"`
	Description string    `json:"description"`
	Reusable    bool      `json:"reusable"`
	Email       string    `json:"email,omitempty"`
	ClaimCode   string    `json:"claim_code"`
	// ClaimGroup correlates codes generated in one batch (printed sheets).
	ClaimGroup string     `json:"claim_group,omitempty"`
	CreatorID  *uuid.UUID `json:"creator_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AllowsClaimBy reports whether the actor may claim. Any authenticated user
// may: claiming under a different email than the invitation is deliberate.
func (d *DeferredAward) AllowsClaimBy(actor *User) bool {
	return actor != nil
}

// AllowsGrantBy reports whether the actor may re-address this deferred award
// to another email: staff, superusers, anyone who could award the badge
// directly, and the deferred award's creator.
func (d *DeferredAward) AllowsGrantBy(badge *Badge, actor *User) bool {
	if actor.Elevated() {
		return true
	}
	if badge.AllowsAwardTo(actor) {
		return true
	}
	return actor.Is(d.CreatorID)
}

// DeferredAwardPermissions is the capability set one actor holds over a
// deferred award.
type DeferredAwardPermissions struct {
	ClaimBy bool `json:"claim_by"`
	GrantBy bool `json:"grant_by"`
}

// PermissionsFor evaluates every deferred award capability for the actor.
func (d *DeferredAward) PermissionsFor(badge *Badge, actor *User) DeferredAwardPermissions {
	return DeferredAwardPermissions{
		ClaimBy: d.AllowsClaimBy(actor),
		GrantBy: d.AllowsGrantBy(badge, actor),
	}
}

// ClaimGroupSummary describes one batch of generated claim codes.
type ClaimGroupSummary struct {
	ClaimGroup string    `json:"claim_group"`
	Count      int       `json:"count"`
	UpdatedAt  time.Time `json:"updated_at"`
}
