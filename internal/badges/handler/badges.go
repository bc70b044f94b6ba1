package handler

import (
	"net/http"
	"time"

	"laurel/internal/platform/middleware"
	"laurel/pkg/platform/httputil"
)

// HandleCreateBadge handles POST /badges requests.
func (h *Handler) HandleCreateBadge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BadgeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	badge, err := h.service.CreateBadge(ctx, actor, req.Params())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "badge created",
		"request_id", requestID,
		"badge", badge.Slug,
		"actor", actor.Username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBadge(badge, actor))
}

// HandleListBadges handles GET /badges requests.
func (h *Handler) HandleListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.service.ListBadges(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, badges)
}

// HandleGetBadge handles GET /badges/{slug} requests.
func (h *Handler) HandleGetBadge(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBadge(badge, actor))
}

// HandleEditBadge handles PUT /badges/{slug} requests.
func (h *Handler) HandleEditBadge(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[BadgeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	edited, err := h.service.EditBadge(ctx, actor, badge.ID, req.Params())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBadge(edited, actor))
}

// HandleDeleteBadge handles DELETE /badges/{slug} requests. Deletion
// cascades to awards, progress, nominations and claim codes.
func (h *Handler) HandleDeleteBadge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBadge(ctx, actor, badge.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "badge deleted",
		"request_id", middleware.GetRequestID(ctx),
		"badge", badge.Slug,
		"actor", actor.Username,
	)
	w.WriteHeader(http.StatusNoContent)
}
