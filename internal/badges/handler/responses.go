package handler

import (
	"laurel/internal/badges/models"
)

// BadgeResponse is a badge together with the caller's capability set.
type BadgeResponse struct {
	*models.Badge
	Permissions models.BadgePermissions `json:"permissions"`
}

// FromBadge builds the badge response as seen by one actor.
func FromBadge(b *models.Badge, actor *models.User) *BadgeResponse {
	return &BadgeResponse{
		Badge:       b,
		Permissions: b.PermissionsFor(actor),
	}
}

// AwardResponse is the outcome of an award request. Exactly one of Award and
// Deferred is set: a deferred award means the recipient has no account yet
// and was invited to claim.
type AwardResponse struct {
	Award    *models.Award         `json:"award,omitempty"`
	Deferred *models.DeferredAward `json:"deferred,omitempty"`
}

// NominationResponse is a nomination together with the caller's capability
// set.
type NominationResponse struct {
	*models.Nomination
	Permissions models.NominationPermissions `json:"permissions"`
}

// FromNomination builds the nomination response as seen by one actor.
func FromNomination(n *models.Nomination, badge *models.Badge, actor *models.User) *NominationResponse {
	return &NominationResponse{
		Nomination:  n,
		Permissions: n.PermissionsFor(badge, actor),
	}
}

// ClaimPreviewResponse describes a claim code before redemption. The email
// the code was addressed to is withheld; anyone holding the code may look
// it up.
type ClaimPreviewResponse struct {
	ClaimCode   string        `json:"claim_code"`
	Badge       *models.Badge `json:"badge"`
	Description string        `json:"description,omitempty"`
	Reusable    bool          `json:"reusable"`
}

// DeferredResponse is a deferred award together with the caller's capability
// set.
type DeferredResponse struct {
	*models.DeferredAward
	Permissions models.DeferredAwardPermissions `json:"permissions"`
}

// FromDeferred builds the deferred award response as seen by one actor.
func FromDeferred(d *models.DeferredAward, badge *models.Badge, actor *models.User) *DeferredResponse {
	return &DeferredResponse{
		DeferredAward: d,
		Permissions:   d.PermissionsFor(badge, actor),
	}
}

// ClaimGroupResponse is a freshly minted batch of claim codes.
type ClaimGroupResponse struct {
	ClaimGroup string                  `json:"claim_group"`
	Codes      []*models.DeferredAward `json:"codes"`
}

// RetiredGroupResponse reports how many codes a group retirement removed.
type RetiredGroupResponse struct {
	ClaimGroup string `json:"claim_group"`
	Removed    int    `json:"removed"`
}

// ClaimedPendingResponse lists the awards a pending-claims sweep produced.
type ClaimedPendingResponse struct {
	Awards []*models.Award `json:"awards"`
}
