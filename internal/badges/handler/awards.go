package handler

import (
	"net/http"
	"time"

	"laurel/internal/badges/service"
	"laurel/internal/platform/middleware"
	"laurel/pkg/platform/httputil"
)

// HandleAward handles POST /badges/{slug}/awards requests. A recipient named
// by user ID is awarded directly; one named by email may come back as a
// deferred award when the address has no account.
func (h *Handler) HandleAward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AwardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp := AwardResponse{}
	if req.UserID != nil {
		award, err := h.service.AwardTo(ctx, actor, badge.ID, *req.UserID, service.WithDescription(req.Description))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resp.Award = award
	} else {
		award, deferred, err := h.service.AwardToEmail(ctx, actor, badge.ID, req.Email, req.Description)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resp.Award = award
		resp.Deferred = deferred
	}

	h.logger.InfoContext(ctx, "badge awarded",
		"request_id", requestID,
		"badge", badge.Slug,
		"actor", actor.Username,
		"deferred", resp.Deferred != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleListBadgeAwards handles GET /badges/{slug}/awards requests.
func (h *Handler) HandleListBadgeAwards(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	awards, err := h.service.ListAwardsForBadge(r.Context(), badge.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, awards)
}

// HandleGetAward handles GET /awards/{id} requests.
func (h *Handler) HandleGetAward(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	award, err := h.service.GetAward(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, award)
}

// HandleDeleteAward handles DELETE /awards/{id} requests.
func (h *Handler) HandleDeleteAward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAward(ctx, actor, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "award deleted",
		"request_id", middleware.GetRequestID(ctx),
		"award_id", id,
		"actor", actor.Username,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetAwardHidden handles PUT /awards/{id}/hidden requests, letting a
// recipient pull an award out of (or back into) public badge listings.
func (h *Handler) HandleSetAwardHidden(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[HiddenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	award, err := h.service.SetAwardHidden(ctx, actor, id, req.Hidden)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "award visibility changed",
		"request_id", requestID,
		"award_id", award.ID,
		"hidden", award.Hidden,
		"actor", actor.Username,
	)
	httputil.WriteJSON(w, http.StatusOK, award)
}

// HandleMyAwards handles GET /me/awards requests.
func (h *Handler) HandleMyAwards(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	awards, err := h.service.ListAwardsForUser(r.Context(), actor.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, awards)
}
