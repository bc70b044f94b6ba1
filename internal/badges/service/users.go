package service

import (
	"context"
	"errors"

	"laurel/internal/badges/models"

	"github.com/google/uuid"
)

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err, "get user")
	}
	return u, nil
}

// EnsureUser mirrors an identity the host application asserted about the
// caller. Unknown users are created on first sight; known ones are returned
// as stored, so locally held staff flags are not overwritten by a stale
// token.
func (s *Service) EnsureUser(ctx context.Context, asserted *models.User) (*models.User, error) {
	existing, err := s.users.GetByID(ctx, asserted.ID)
	if err == nil {
		return existing, nil
	}
	if mapped := mapStoreErr(err, "ensure user"); !errors.Is(mapped, models.ErrNotFound) {
		return nil, mapped
	}

	u := *asserted
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, mapStoreErr(err, "ensure user")
	}
	s.logger.InfoContext(ctx, "user mirrored from host identity",
		"user_id", u.ID,
		"username", u.Username,
	)
	return &u, nil
}
