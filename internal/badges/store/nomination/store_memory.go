package nomination

import (
	"context"
	"sort"
	"sync"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// InMemoryStore keeps nominations in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	nominations map[uuid.UUID]*models.Nomination
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{nominations: make(map[uuid.UUID]*models.Nomination)}
}

func (s *InMemoryStore) Create(_ context.Context, n *models.Nomination) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nominations[n.ID] = cloneNomination(n)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, n *models.Nomination) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nominations[n.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nominations[n.ID] = cloneNomination(n)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nominations[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.nominations, id)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Nomination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, ok := s.nominations[id]; ok {
		return cloneNomination(n), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByBadge(_ context.Context, badgeID uuid.UUID) ([]*models.Nomination, error) {
	return s.listWhere(func(n *models.Nomination) bool { return n.BadgeID == badgeID })
}

func (s *InMemoryStore) ListByNominee(_ context.Context, nomineeID uuid.UUID) ([]*models.Nomination, error) {
	return s.listWhere(func(n *models.Nomination) bool { return n.NomineeID == nomineeID })
}

func (s *InMemoryStore) listWhere(match func(*models.Nomination) bool) ([]*models.Nomination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Nomination
	for _, n := range s.nominations {
		if match(n) {
			out = append(out, cloneNomination(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneNomination(n *models.Nomination) *models.Nomination {
	c := *n
	c.CreatorID = cloneID(n.CreatorID)
	c.ApproverID = cloneID(n.ApproverID)
	c.RejectedByID = cloneID(n.RejectedByID)
	c.AwardID = cloneID(n.AwardID)
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
