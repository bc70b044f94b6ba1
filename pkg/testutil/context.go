package testutil

import (
	"context"
	"net/http"

	"laurel/internal/platform/middleware"
)

// WithActorClaims places actor claims on the request context, simulating
// what the auth middleware does for authenticated requests. Handlers under
// test can then be exercised without minting tokens.
func WithActorClaims(req *http.Request, claims *middleware.ActorClaims) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyActor, claims)
	return req.WithContext(ctx)
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}
