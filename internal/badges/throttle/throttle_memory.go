package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryLimiter is a fixed-window limiter for single-instance deployments
// and tests. For distributed deployments, use the Redis limiter.
type InMemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[uuid.UUID]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewInMemory(cfg Config) *InMemoryLimiter {
	return &InMemoryLimiter{
		cfg:     cfg,
		windows: make(map[uuid.UUID]*window),
		now:     time.Now,
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, userID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.windows[userID] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= l.cfg.Limit {
		return false, nil
	}
	w.count++
	return true, nil
}

func (l *InMemoryLimiter) Reset(_ context.Context, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, userID)
	return nil
}
