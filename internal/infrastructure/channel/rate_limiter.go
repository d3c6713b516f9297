package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appchannel "github.com/retail/backend/internal/application/channel"
)

const rateLimitKeyPrefix = "channel:rate:"

// RedisRateLimiter enforces per-connection send budgets on a fixed
// one-minute window. Redis keeps the counters so every worker instance
// draws from the same budget.
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateLimiter wraps an existing Redis client
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: rateLimitKeyPrefix,
	}
}

// Allow increments the connection's counter for the current minute and
// reports whether the send fits inside the budget. The counter expires
// with the window, so a denied send costs nothing next minute.
func (l *RedisRateLimiter) Allow(ctx context.Context, connectionID uuid.UUID, perMinute int) (bool, error) {
	window := time.Now().Unix() / 60
	key := fmt.Sprintf("%s%s:%d", l.keyPrefix, connectionID, window)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return count.Val() <= int64(perMinute), nil
}

var _ appchannel.RateLimiter = (*RedisRateLimiter)(nil)

// InMemoryRateLimiter is a process-local rate limiter for development
// and tests. Budgets are not shared across worker instances.
type InMemoryRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	window int64
	now    func() time.Time
}

// NewInMemoryRateLimiter creates an in-memory rate limiter
func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Allow reports whether one more send fits inside the connection's
// budget for the current minute
func (l *InMemoryRateLimiter) Allow(_ context.Context, connectionID uuid.UUID, perMinute int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.now().Unix() / 60
	if window != l.window {
		l.counts = make(map[string]int)
		l.window = window
	}

	key := connectionID.String()
	l.counts[key]++
	return l.counts[key] <= perMinute, nil
}

var _ appchannel.RateLimiter = (*InMemoryRateLimiter)(nil)
