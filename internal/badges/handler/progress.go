package handler

import (
	"net/http"

	"laurel/internal/badges/models"
	"laurel/internal/badges/service"
	"laurel/internal/platform/middleware"
	"laurel/pkg/platform/httputil"
)

// HandleGetProgress handles GET /badges/{slug}/progress requests, returning
// the caller's own progress toward the badge. A pair with no stored row
// reads as a fresh zero state.
func (h *Handler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	p, err := h.service.ProgressFor(r.Context(), badge.ID, actor.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleUpdateProgress handles POST /badges/{slug}/progress requests. A
// percent update that reaches 100 triggers the award and hands back the
// fresh zero row.
func (h *Handler) HandleUpdateProgress(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[ProgressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var opts []service.ProgressOption
	if req.Notes != nil {
		opts = append(opts, service.WithNotes(req.Notes))
	}

	var (
		p   *models.Progress
		err error
	)
	switch {
	case req.Percent != nil:
		p, err = h.service.UpdatePercent(ctx, badge.ID, actor.ID, *req.Percent, req.Total, opts...)
	case req.Increment != nil:
		p, err = h.service.IncrementBy(ctx, badge.ID, actor.ID, *req.Increment, opts...)
	default:
		p, err = h.service.DecrementBy(ctx, badge.ID, actor.ID, *req.Decrement, opts...)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}
