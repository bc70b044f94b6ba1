package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"laurel/internal/platform/middleware"
	"laurel/pkg/platform/httputil"
)

// HandlePreviewClaim handles GET /claims/{code} requests, describing what a
// claim code is worth before the holder commits to redeeming it. Lookups
// count against the caller's throttle budget.
func (h *Handler) HandlePreviewClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))

	d, err := h.service.GetByClaimCode(ctx, actor, code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	badge, err := h.service.GetBadge(ctx, d.BadgeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ClaimPreviewResponse{
		ClaimCode:   d.ClaimCode,
		Badge:       badge,
		Description: d.Description,
		Reusable:    d.Reusable,
	})
}

// HandleRedeemClaim handles POST /claims/{code} requests, converting a
// deferred award into a real one for the caller.
func (h *Handler) HandleRedeemClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))

	award, err := h.service.ClaimByCode(ctx, actor, code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if award == nil {
		// The caller already holds the badge; the code was consumed but
		// nothing new was awarded.
		h.logger.InfoContext(ctx, "claim code spent without award",
			"request_id", middleware.GetRequestID(ctx),
			"actor", actor.Username,
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.InfoContext(ctx, "claim code redeemed",
		"request_id", middleware.GetRequestID(ctx),
		"badge_id", award.BadgeID,
		"actor", actor.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, award)
}

// HandleClaimPending handles POST /claims/pending requests, sweeping every
// deferred award addressed to the caller's email. Hosts call this right
// after account creation or email verification.
func (h *Handler) HandleClaimPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	awards, err := h.service.ClaimPendingByEmail(ctx, actor)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if len(awards) > 0 {
		h.logger.InfoContext(ctx, "pending claims swept",
			"request_id", middleware.GetRequestID(ctx),
			"actor", actor.Username,
			"claimed", len(awards),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, ClaimedPendingResponse{Awards: awards})
}

// HandleGenerateClaimGroup handles POST /badges/{slug}/claim-groups requests,
// minting a batch of claim codes under one group handle.
func (h *Handler) HandleGenerateClaimGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ClaimGroupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	codes, err := h.service.GenerateClaimGroup(ctx, actor, badge.ID, req.Count, req.Reusable)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "claim group generated",
		"request_id", requestID,
		"badge", badge.Slug,
		"count", len(codes),
		"reusable", req.Reusable,
	)
	httputil.WriteJSON(w, http.StatusCreated, ClaimGroupResponse{
		ClaimGroup: codes[0].ClaimGroup,
		Codes:      codes,
	})
}

// HandleListClaimGroups handles GET /badges/{slug}/claim-groups requests.
func (h *Handler) HandleListClaimGroups(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	groups, err := h.service.ListClaimGroups(r.Context(), actor, badge.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, groups)
}

// HandleDeleteClaimGroup handles DELETE /badges/{slug}/claim-groups/{group}
// requests, retiring every unclaimed code in the batch.
func (h *Handler) HandleDeleteClaimGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	group := chi.URLParam(r, "group")

	removed, err := h.service.DeleteClaimGroup(ctx, actor, badge.ID, group)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "claim group retired",
		"request_id", middleware.GetRequestID(ctx),
		"badge", badge.Slug,
		"claim_group", group,
		"removed", removed,
	)
	httputil.WriteJSON(w, http.StatusOK, RetiredGroupResponse{ClaimGroup: group, Removed: removed})
}

// HandleListDeferred handles GET /badges/{slug}/deferred requests.
func (h *Handler) HandleListDeferred(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	pending, err := h.service.ListDeferredForBadge(r.Context(), actor, badge.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]*DeferredResponse, 0, len(pending))
	for _, d := range pending {
		out = append(out, FromDeferred(d, badge, actor))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGrant handles POST /deferred/{id}/grant requests, re-addressing a
// deferred award to another email.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	granted, err := h.service.GrantTo(ctx, actor, id, req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "deferred award granted",
		"request_id", requestID,
		"deferred_id", granted.ID,
		"actor", actor.Username,
	)
	httputil.WriteJSON(w, http.StatusOK, granted)
}
