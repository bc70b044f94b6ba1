// Package throttle limits claim code attempts per user. Codes are short
// enough to guess, so failed lookups are rate limited per account.
package throttle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Limiter answers whether a user may attempt another claim right now.
type Limiter interface {
	Allow(ctx context.Context, userID uuid.UUID) (bool, error)
	Reset(ctx context.Context, userID uuid.UUID) error
}

// Config bounds the fixed window.
type Config struct {
	Limit  int
	Window time.Duration
}

// DefaultConfig allows 10 attempts per minute.
func DefaultConfig() Config {
	return Config{Limit: 10, Window: time.Minute}
}
