package deferred

import (
	"context"
	"sort"
	"strings"
	"sync"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// InMemoryStore keeps deferred awards in process memory. Claim codes and
// emails are matched case-insensitively, as in the PostgreSQL store.
type InMemoryStore struct {
	mu       sync.RWMutex
	deferred map[uuid.UUID]*models.DeferredAward
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{deferred: make(map[uuid.UUID]*models.DeferredAward)}
}

// Create inserts a deferred award. When exclusive is set (the badge is
// unique) and the invitation is addressed, at most one deferred award may
// exist per (badge, email); a second insert fails with
// sentinel.ErrAlreadyUsed.
func (s *InMemoryStore) Create(_ context.Context, d *models.DeferredAward, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exclusive && d.Email != "" {
		for _, existing := range s.deferred {
			if existing.BadgeID == d.BadgeID && strings.EqualFold(existing.Email, d.Email) {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	for _, existing := range s.deferred {
		if strings.EqualFold(existing.ClaimCode, d.ClaimCode) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.deferred[d.ID] = cloneDeferred(d)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, d *models.DeferredAward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deferred[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.deferred[d.ID] = cloneDeferred(d)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deferred[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.deferred, id)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.DeferredAward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.deferred[id]; ok {
		return cloneDeferred(d), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByClaimCode(_ context.Context, code string) (*models.DeferredAward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.deferred {
		if strings.EqualFold(d.ClaimCode, code) {
			return cloneDeferred(d), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByEmail(_ context.Context, email string) ([]*models.DeferredAward, error) {
	return s.listWhere(func(d *models.DeferredAward) bool {
		return strings.EqualFold(d.Email, email)
	})
}

func (s *InMemoryStore) ListByBadge(_ context.Context, badgeID uuid.UUID) ([]*models.DeferredAward, error) {
	return s.listWhere(func(d *models.DeferredAward) bool { return d.BadgeID == badgeID })
}

func (s *InMemoryStore) listWhere(match func(*models.DeferredAward) bool) ([]*models.DeferredAward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DeferredAward
	for _, d := range s.deferred {
		if match(d) {
			out = append(out, cloneDeferred(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListClaimGroups summarizes the code batches generated for a badge.
func (s *InMemoryStore) ListClaimGroups(_ context.Context, badgeID uuid.UUID) ([]models.ClaimGroupSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byGroup := make(map[string]*models.ClaimGroupSummary)
	for _, d := range s.deferred {
		if d.BadgeID != badgeID || d.ClaimGroup == "" {
			continue
		}
		g, ok := byGroup[d.ClaimGroup]
		if !ok {
			g = &models.ClaimGroupSummary{ClaimGroup: d.ClaimGroup}
			byGroup[d.ClaimGroup] = g
		}
		g.Count++
		if d.UpdatedAt.After(g.UpdatedAt) {
			g.UpdatedAt = d.UpdatedAt
		}
	}
	out := make([]models.ClaimGroupSummary, 0, len(byGroup))
	for _, g := range byGroup {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimGroup < out[j].ClaimGroup })
	return out, nil
}

// DeleteClaimGroup removes every deferred award in the batch and returns how
// many were removed.
func (s *InMemoryStore) DeleteClaimGroup(_ context.Context, badgeID uuid.UUID, claimGroup string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, d := range s.deferred {
		if d.BadgeID == badgeID && d.ClaimGroup == claimGroup {
			delete(s.deferred, id)
			removed++
		}
	}
	return removed, nil
}

func cloneDeferred(d *models.DeferredAward) *models.DeferredAward {
	c := *d
	if d.CreatorID != nil {
		id := *d.CreatorID
		c.CreatorID = &id
	}
	return &c
}
