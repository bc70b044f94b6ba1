package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Badge is a named, sluggable achievement definition.
//
// Invariants:
//   - Title is non-empty and unique across all badges
//   - Slug is unique; derived from Title when not supplied
//   - When Unique is set, at most one award per user may exist (enforced at
//     the ledger and by the storage layer)
//   - Prerequisites form an acyclic directed graph over badge IDs; acyclicity
//     is validated at edit time, not at cascade time
//
// A nil CreatorID means the badge is issued by the site itself.
type Badge struct {
	ID                      uuid.UUID   `json:"id"`
	Title                   string      `json:"title"`
	Slug                    string      `json:"slug"`
	Description             string      `json:"description"`
	Unique                  bool        `json:"unique"`
	NominationsAccepted     bool        `json:"nominations_accepted"`
	NominationsAutoApproved bool        `json:"nominations_autoapproved"`
	CreatorID               *uuid.UUID  `json:"creator_id,omitempty"`
	Prerequisites           []uuid.UUID `json:"prerequisites,omitempty"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// NewBadge constructs a badge, deriving the slug from the title when absent.
func NewBadge(id uuid.UUID, title, slug string, creator *User, now time.Time) (*Badge, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("badge title cannot be empty")
	}
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return nil, fmt.Errorf("badge title %q yields an empty slug", title)
	}
	b := &Badge{
		ID:        id,
		Title:     title,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if creator != nil {
		creatorID := creator.ID
		b.CreatorID = &creatorID
	}
	return b, nil
}

// Slugify lowercases the title and collapses anything that is not a letter or
// digit into single hyphens.
func Slugify(s string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// HasPrerequisite reports whether the badge lists the given badge ID as a
// direct prerequisite.
func (b *Badge) HasPrerequisite(id uuid.UUID) bool {
	for _, p := range b.Prerequisites {
		if p == id {
			return true
		}
	}
	return false
}

// AllowsAwardTo reports whether the actor may award this badge. The system
// (nil actor), staff, superusers and the badge creator may.
func (b *Badge) AllowsAwardTo(actor *User) bool {
	if actor == nil {
		return true
	}
	if actor.Elevated() {
		return true
	}
	return actor.Is(b.CreatorID)
}

// AllowsEditBy reports whether the actor may edit this badge. The system
// (nil actor), staff, superusers and the badge creator may.
func (b *Badge) AllowsEditBy(actor *User) bool {
	if actor == nil {
		return true
	}
	return actor.Elevated() || actor.Is(b.CreatorID)
}

// AllowsDeleteBy reports whether the actor may delete this badge. Deletion
// cascades to all of its awards, so the bar matches editing.
func (b *Badge) AllowsDeleteBy(actor *User) bool {
	return b.AllowsEditBy(actor)
}

// AllowsManageDeferredBy reports whether the actor may generate, list and
// delete deferred awards (claim codes) for this badge. The bar matches
// editing.
func (b *Badge) AllowsManageDeferredBy(actor *User) bool {
	if actor == nil {
		return true
	}
	return actor.Elevated() || actor.Is(b.CreatorID)
}

// AllowsNominateFor reports whether the actor may open a nomination for this
// badge. Nominations are open to everyone while the badge accepts them; the
// system, staff, superusers and the badge creator may nominate regardless.
func (b *Badge) AllowsNominateFor(actor *User) bool {
	if b.NominationsAccepted {
		return true
	}
	return actor == nil || actor.Elevated() || actor.Is(b.CreatorID)
}

// BadgePermissions is the explicit capability set for a badge as seen by one
// actor. Computed by calling the predicates directly; there is no dynamic
// permission aggregation.
type BadgePermissions struct {
	AwardTo        bool `json:"award_to"`
	EditBy         bool `json:"edit_by"`
	DeleteBy       bool `json:"delete_by"`
	NominateFor    bool `json:"nominate_for"`
	ManageDeferred bool `json:"manage_deferred"`
}

// PermissionsFor computes the capability set for the given actor.
func (b *Badge) PermissionsFor(actor *User) BadgePermissions {
	return BadgePermissions{
		AwardTo:        b.AllowsAwardTo(actor),
		EditBy:         b.AllowsEditBy(actor),
		DeleteBy:       b.AllowsDeleteBy(actor),
		NominateFor:    b.AllowsNominateFor(actor),
		ManageDeferred: b.AllowsManageDeferredBy(actor),
	}
}
