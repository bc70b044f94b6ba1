package progress

import (
	"context"
	"sync"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

type pairKey struct {
	badgeID uuid.UUID
	userID  uuid.UUID
}

// InMemoryStore keeps progress rows in process memory, one per (badge, user).
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[pairKey]*models.Progress
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[pairKey]*models.Progress)}
}

// Upsert writes the row for the pair, creating it on first save.
func (s *InMemoryStore) Upsert(_ context.Context, p *models.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneProgress(p)
	c.Saved = true
	s.rows[pairKey{p.BadgeID, p.UserID}] = c
	return nil
}

func (s *InMemoryStore) GetByBadgeAndUser(_ context.Context, badgeID, userID uuid.UUID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.rows[pairKey{badgeID, userID}]; ok {
		return cloneProgress(p), nil
	}
	return nil, sentinel.ErrNotFound
}

// DeleteByBadgeAndUser removes the pair's row. Deleting an absent row is not
// an error: the ledger resets progress unconditionally after every award.
func (s *InMemoryStore) DeleteByBadgeAndUser(_ context.Context, badgeID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, pairKey{badgeID, userID})
	return nil
}

func cloneProgress(p *models.Progress) *models.Progress {
	c := *p
	if p.Notes != nil {
		c.Notes = make(map[string]any, len(p.Notes))
		for k, v := range p.Notes {
			c.Notes[k] = v
		}
	}
	return &c
}
