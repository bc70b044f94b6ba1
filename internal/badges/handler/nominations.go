package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"laurel/internal/badges/models"
	"laurel/internal/platform/middleware"
	"laurel/pkg/platform/httputil"
)

// HandleNominate handles POST /badges/{slug}/nominations requests.
func (h *Handler) HandleNominate(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[NominateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	n, err := h.service.Nominate(ctx, actor, badge.ID, req.NomineeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "nomination created",
		"request_id", requestID,
		"badge", badge.Slug,
		"nominee_id", req.NomineeID,
		"actor", actor.Username,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromNomination(n, badge, actor))
}

// HandleListBadgeNominations handles GET /badges/{slug}/nominations requests.
func (h *Handler) HandleListBadgeNominations(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeFromSlug(w, r)
	if !ok {
		return
	}
	nominations, err := h.service.ListNominationsForBadge(r.Context(), badge.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nominations)
}

// HandleGetNomination handles GET /nominations/{id} requests.
func (h *Handler) HandleGetNomination(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	n, badge, ok := h.nominationWithBadge(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromNomination(n, badge, actor))
}

// HandleApproveNomination handles POST /nominations/{id}/approve requests.
func (h *Handler) HandleApproveNomination(w http.ResponseWriter, r *http.Request) {
	h.confirmNomination(w, r, "nomination approved",
		func(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Nomination, error) {
			return h.service.ApproveNomination(ctx, actor, id)
		})
}

// HandleAcceptNomination handles POST /nominations/{id}/accept requests.
func (h *Handler) HandleAcceptNomination(w http.ResponseWriter, r *http.Request) {
	h.confirmNomination(w, r, "nomination accepted",
		func(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Nomination, error) {
			return h.service.AcceptNomination(ctx, actor, id)
		})
}

// HandleRejectNomination handles POST /nominations/{id}/reject requests.
func (h *Handler) HandleRejectNomination(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	n, err := h.service.RejectNomination(ctx, actor, id, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	badge, err := h.service.GetBadge(ctx, n.BadgeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromNomination(n, badge, actor))
}

// HandleMyNominations handles GET /me/nominations requests, listing
// nominations where the caller is the nominee.
func (h *Handler) HandleMyNominations(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	nominations, err := h.service.ListNominationsForNominee(r.Context(), actor.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nominations)
}

func (h *Handler) nominationWithBadge(w http.ResponseWriter, r *http.Request) (*models.Nomination, *models.Badge, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, nil, false
	}
	n, err := h.service.GetNomination(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, nil, false
	}
	badge, err := h.service.GetBadge(r.Context(), n.BadgeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, nil, false
	}
	return n, badge, true
}

func (h *Handler) confirmNomination(
	w http.ResponseWriter,
	r *http.Request,
	logMsg string,
	confirm func(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Nomination, error),
) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	n, err := confirm(ctx, actor, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	badge, err := h.service.GetBadge(ctx, n.BadgeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, logMsg,
		"request_id", middleware.GetRequestID(ctx),
		"nomination_id", id,
		"actor", actor.Username,
		"awarded", n.IsAwarded(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromNomination(n, badge, actor))
}
