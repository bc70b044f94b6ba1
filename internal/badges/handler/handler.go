// Package handler exposes the badge engine over HTTP. Routes are mounted on
// a chi router; identity arrives as actor claims placed in the request
// context by the auth middleware and is mirrored into the engine's user
// store on first sight.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"laurel/internal/badges/models"
	"laurel/internal/badges/service"
	"laurel/internal/platform/middleware"
	"laurel/pkg/platform/httputil"
	"laurel/pkg/platform/sentinel"
)

// Handler wires badge endpoints to the badge service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs a badge handler with its dependencies.
func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts badge endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/badges", func(r chi.Router) {
		r.Post("/", h.HandleCreateBadge)
		r.Get("/", h.HandleListBadges)
		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.HandleGetBadge)
			r.Put("/", h.HandleEditBadge)
			r.Delete("/", h.HandleDeleteBadge)

			r.Post("/awards", h.HandleAward)
			r.Get("/awards", h.HandleListBadgeAwards)

			r.Get("/progress", h.HandleGetProgress)
			r.Post("/progress", h.HandleUpdateProgress)

			r.Post("/nominations", h.HandleNominate)
			r.Get("/nominations", h.HandleListBadgeNominations)

			r.Post("/claim-groups", h.HandleGenerateClaimGroup)
			r.Get("/claim-groups", h.HandleListClaimGroups)
			r.Delete("/claim-groups/{group}", h.HandleDeleteClaimGroup)
			r.Get("/deferred", h.HandleListDeferred)
		})
	})

	r.Route("/awards", func(r chi.Router) {
		r.Get("/{id}", h.HandleGetAward)
		r.Delete("/{id}", h.HandleDeleteAward)
		r.Put("/{id}/hidden", h.HandleSetAwardHidden)
	})

	r.Route("/nominations", func(r chi.Router) {
		r.Get("/{id}", h.HandleGetNomination)
		r.Post("/{id}/approve", h.HandleApproveNomination)
		r.Post("/{id}/accept", h.HandleAcceptNomination)
		r.Post("/{id}/reject", h.HandleRejectNomination)
	})

	r.Route("/claims", func(r chi.Router) {
		r.Post("/pending", h.HandleClaimPending)
		r.Get("/{code}", h.HandlePreviewClaim)
		r.Post("/{code}", h.HandleRedeemClaim)
	})

	r.Route("/deferred", func(r chi.Router) {
		r.Post("/{id}/grant", h.HandleGrant)
	})

	r.Route("/me", func(r chi.Router) {
		r.Get("/awards", h.HandleMyAwards)
		r.Get("/nominations", h.HandleMyNominations)
	})
}

// actor resolves the authenticated caller into a user record, mirroring the
// asserted identity into the engine's store. Writes the error response and
// returns false when the request carries no usable identity.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	ctx := r.Context()
	claims := middleware.GetActorClaims(ctx)
	if claims == nil {
		httputil.WriteError(w, httputil.New(httputil.CodeUnauthorized, "authentication required"))
		return nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		httputil.WriteError(w, httputil.New(httputil.CodeUnauthorized, "malformed subject"))
		return nil, false
	}
	user, err := h.service.EnsureUser(ctx, &models.User{
		ID:        userID,
		Username:  claims.Username,
		Email:     claims.Email,
		Staff:     claims.Staff,
		Superuser: claims.Superuser,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return user, true
}

// badgeFromSlug loads the badge named in the URL. Writes the error response
// and returns false when it does not exist.
func (h *Handler) badgeFromSlug(w http.ResponseWriter, r *http.Request) (*models.Badge, bool) {
	badge, err := h.service.GetBadgeBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return badge, true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, httputil.New(httputil.CodeBadRequest, "malformed id"))
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError translates domain errors into the HTTP error envelope.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *httputil.Error
	switch {
	case errors.As(err, &httpErr):
		// Already shaped by request validation.
	case errors.Is(err, models.ErrNotFound):
		httpErr = httputil.New(httputil.CodeNotFound, err.Error())
	case errors.Is(err, models.ErrNotAllowed), errors.Is(err, models.ErrGrantNotAllowed):
		httpErr = httputil.New(httputil.CodeForbidden, err.Error())
	case errors.Is(err, models.ErrAlreadyAwarded), errors.Is(err, sentinel.ErrAlreadyUsed):
		httpErr = httputil.New(httputil.CodeConflict, err.Error())
	case errors.Is(err, models.ErrClaimThrottled):
		httpErr = httputil.New(httputil.CodeTooManyRequests, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		httpErr = httputil.New(httputil.CodeInternal, "")
	}
	httputil.WriteError(w, httpErr)
}
