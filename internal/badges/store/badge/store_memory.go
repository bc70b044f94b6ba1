package badge

import (
	"context"
	"sort"
	"strings"
	"sync"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// InMemoryStore keeps badges in process memory. It enforces the same slug
// and title uniqueness the PostgreSQL store enforces with unique indexes.
type InMemoryStore struct {
	mu     sync.RWMutex
	badges map[uuid.UUID]*models.Badge
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{badges: make(map[uuid.UUID]*models.Badge)}
}

func (s *InMemoryStore) Create(_ context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.badges {
		if existing.Slug == b.Slug || strings.EqualFold(existing.Title, b.Title) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.badges[b.ID] = cloneBadge(b)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.badges[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.badges {
		if id == b.ID {
			continue
		}
		if existing.Slug == b.Slug || strings.EqualFold(existing.Title, b.Title) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.badges[b.ID] = cloneBadge(b)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.badges[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.badges, id)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.badges[id]; ok {
		return cloneBadge(b), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetBySlug(_ context.Context, slug string) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.badges {
		if b.Slug == slug {
			return cloneBadge(b), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByTitle(_ context.Context, title string) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.badges {
		if strings.EqualFold(b.Title, title) {
			return cloneBadge(b), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Badge, 0, len(s.badges))
	for _, b := range s.badges {
		out = append(out, cloneBadge(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByPrerequisite returns every badge that lists the given badge among its
// prerequisites. The award cascade fans out through this.
func (s *InMemoryStore) ListByPrerequisite(_ context.Context, badgeID uuid.UUID) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Badge
	for _, b := range s.badges {
		if b.HasPrerequisite(badgeID) {
			out = append(out, cloneBadge(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneBadge(b *models.Badge) *models.Badge {
	c := *b
	if b.Prerequisites != nil {
		c.Prerequisites = append([]uuid.UUID(nil), b.Prerequisites...)
	}
	if b.CreatorID != nil {
		id := *b.CreatorID
		c.CreatorID = &id
	}
	return &c
}
