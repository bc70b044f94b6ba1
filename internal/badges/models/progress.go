package models

import (
	"time"

	"github.com/google/uuid"
)

// Progress tracks incremental movement toward an automatic award, one row per
// (badge, user).
//
// Rows are created lazily: ProgressFor hands out an unsaved zero-state row,
// and nothing is persisted until the first increment or percent update. The
// ledger deletes the row the moment an award for the same pair is created, so
// a caller re-reading progress after an award observes a fresh zero state.
type Progress struct {
	ID      uuid.UUID `json:"id"`
	BadgeID uuid.UUID `json:"badge_id"`
	UserID  uuid.UUID `json:"user_id"`
	// Percent runs 0-100; saving at or above 100 triggers the award.
	Percent float64 `json:"percent"`
	// Counter is a free-form accumulator for callers tracking their own
	// completion condition (word counts, clicks, logins).
	Counter float64 `json:"counter"`
	// Notes is an open key/value bag for caller-defined bookkeeping.
	Notes     map[string]any `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	// Saved distinguishes a lazily constructed row from one that exists in
	// the store.
	Saved bool `json:"-"`
}

// NewProgress returns an unsaved zero-state row for the pair.
func NewProgress(badgeID, userID uuid.UUID, now time.Time) *Progress {
	return &Progress{
		ID:        uuid.New(),
		BadgeID:   badgeID,
		UserID:    userID,
		Notes:     make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete reports whether the percent threshold has been reached.
func (p *Progress) Complete() bool {
	return p.Percent >= 100
}
