package award

import (
	"context"
	"sort"
	"sync"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// InMemoryStore keeps awards in process memory. The exclusive insert path
// mirrors the conditional insert the PostgreSQL store uses for unique badges.
type InMemoryStore struct {
	mu     sync.RWMutex
	awards map[uuid.UUID]*models.Award
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{awards: make(map[uuid.UUID]*models.Award)}
}

// Create inserts an award. When exclusive is set (the badge is unique), the
// insert fails with sentinel.ErrAlreadyUsed if the (badge, user) pair already
// holds an award; this check-and-insert is atomic under the store lock.
func (s *InMemoryStore) Create(_ context.Context, a *models.Award, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exclusive {
		for _, existing := range s.awards {
			if existing.BadgeID == a.BadgeID && existing.UserID == a.UserID {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.awards[a.ID] = cloneAward(a)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, a *models.Award) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.awards[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.awards[a.ID] = cloneAward(a)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.awards[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.awards, id)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.awards[id]; ok {
		return cloneAward(a), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByBadgeAndUser(_ context.Context, badgeID, userID uuid.UUID) (*models.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Award
	for _, a := range s.awards {
		if a.BadgeID == badgeID && a.UserID == userID {
			if found == nil || a.CreatedAt.Before(found.CreatedAt) {
				found = a
			}
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneAward(found), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Award
	for _, a := range s.awards {
		if a.UserID == userID {
			out = append(out, cloneAward(a))
		}
	}
	sortAwards(out)
	return out, nil
}

func (s *InMemoryStore) ListByBadge(_ context.Context, badgeID uuid.UUID) ([]*models.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Award
	for _, a := range s.awards {
		if a.BadgeID == badgeID {
			out = append(out, cloneAward(a))
		}
	}
	sortAwards(out)
	return out, nil
}

func sortAwards(awards []*models.Award) {
	sort.Slice(awards, func(i, j int) bool { return awards[i].CreatedAt.Before(awards[j].CreatedAt) })
}

func cloneAward(a *models.Award) *models.Award {
	c := *a
	if a.CreatorID != nil {
		id := *a.CreatorID
		c.CreatorID = &id
	}
	return &c
}
