package models

import (
	"time"

	"github.com/google/uuid"
)

// Award is a granted instance of a badge to a user.
//
// Invariant: when the owning badge is unique, at most one award exists per
// (badge, user). This is the central consistency contract of the engine; the
// authoritative guard is the storage layer's unique index, not the
// application-level pre-check.
//
// A nil CreatorID means the award was system-issued (progress completion or a
// prerequisite cascade).
type Award struct {
	ID          uuid.UUID  `json:"id"`
	BadgeID     uuid.UUID  `json:"badge_id"`
	UserID      uuid.UUID  `json:"user_id"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty"`
	Description string     `json:"description"`
	// ClaimCode records the deferred-award code this award was redeemed
	// through, when applicable.
	ClaimCode string `json:"claim_code,omitempty"`
	// Hidden soft-excludes the award from public listings.
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllowsDeleteBy reports whether the actor may delete this award: the system
// (nil actor), staff, superusers, the recipient, and the badge creator.
func (a *Award) AllowsDeleteBy(badge *Badge, actor *User) bool {
	if actor == nil || actor.Elevated() {
		return true
	}
	if actor.ID == a.UserID {
		return true
	}
	return actor.Is(badge.CreatorID)
}

// AllowsHideBy reports whether the actor may toggle the award's public
// visibility. The trophy case is personal: only the recipient decides,
// besides the system and elevated users.
func (a *Award) AllowsHideBy(actor *User) bool {
	if actor == nil || actor.Elevated() {
		return true
	}
	return actor.ID == a.UserID
}
