package throttle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"laurel/pkg/platform/circuit"
)

const claimAttemptKeyPrefix = "claims:attempts:"

// RedisLimiter is a fixed-window limiter backed by Redis INCR with expiry,
// shared across instances. A circuit breaker guards the Redis calls: when
// Redis keeps failing the limiter fails open rather than hammering a dead
// dependency on every claim.
type RedisLimiter struct {
	client  *redis.Client
	cfg     Config
	breaker *circuit.Breaker
}

func NewRedis(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		cfg:     cfg,
		breaker: circuit.New("claim-throttle", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	if l.breaker.IsOpen() {
		if ok, _ := l.probe(ctx); !ok {
			// Fail open: an unavailable throttle must not block claiming.
			return true, nil
		}
	}

	key := claimAttemptKeyPrefix + userID.String()
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.breaker.RecordFailure()
		return false, fmt.Errorf("increment claim attempts: %w", err)
	}
	if count == 1 {
		// First attempt in the window starts the clock.
		if err := l.client.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			l.breaker.RecordFailure()
			return false, fmt.Errorf("expire claim attempts: %w", err)
		}
	}
	l.breaker.RecordSuccess()
	return count <= int64(l.cfg.Limit), nil
}

func (l *RedisLimiter) Reset(ctx context.Context, userID uuid.UUID) error {
	if err := l.client.Del(ctx, claimAttemptKeyPrefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("reset claim attempts: %w", err)
	}
	return nil
}

// probe pings Redis while the breaker is open, recording the outcome so a
// recovered instance closes the breaker again.
func (l *RedisLimiter) probe(ctx context.Context) (bool, error) {
	if err := l.client.Ping(ctx).Err(); err != nil {
		l.breaker.RecordFailure()
		return false, err
	}
	usePrimary, _ := l.breaker.RecordSuccess()
	return usePrimary, nil
}
