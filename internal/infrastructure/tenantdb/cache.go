package tenantdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecordCache stores directory records for the routing fast path. The
// Directory consults it before touching the tenants table and primes it on
// every miss.
type RecordCache interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Set(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryRecordCache is a process-local RecordCache with lazy expiry.
// Suitable for single-instance deployments and tests. In a multi-instance
// deployment each process holds its own copy, so a directory change is
// visible everywhere only after the TTL elapses; use RedisRecordCache when
// that window matters.
type MemoryRecordCache struct {
	mu      sync.RWMutex
	entries map[string]memoryRecord
}

type memoryRecord struct {
	record    Record
	expiresAt time.Time
}

// NewMemoryRecordCache creates an empty in-memory record cache.
func NewMemoryRecordCache() *MemoryRecordCache {
	return &MemoryRecordCache{
		entries: make(map[string]memoryRecord),
	}
}

// Get returns the cached record for key if present and not expired.
func (c *MemoryRecordCache) Get(_ context.Context, key string) (Record, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return Record{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry in between.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Record{}, false, nil
	}
	return entry.record, true, nil
}

// Set stores rec under key for ttl.
func (c *MemoryRecordCache) Set(_ context.Context, key string, rec Record, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryRecord{
		record:    rec,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Delete removes the given keys.
func (c *MemoryRecordCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries, including expired ones that
// have not been read since expiring.
func (c *MemoryRecordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisRecordCache shares directory records across instances through Redis.
// Records are stored as JSON with the TTL enforced server-side, so a
// directory invalidation on one instance is seen by all of them.
type RedisRecordCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRecordCache creates a Redis-backed record cache using an existing
// client. A custom prefix gets a trailing separator so keys stay readable
// under redis namespacing conventions.
func NewRedisRecordCache(client *redis.Client, keyPrefix string) *RedisRecordCache {
	if keyPrefix == "" {
		keyPrefix = "tenantdb:directory:"
	} else if !strings.HasSuffix(keyPrefix, ":") {
		keyPrefix += ":"
	}
	return &RedisRecordCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached record for key if present.
func (c *RedisRecordCache) Get(ctx context.Context, key string) (Record, bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read directory record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt entry is treated as a miss and dropped so the next
		// lookup re-primes it from the tenants table.
		_ = c.client.Del(ctx, c.keyPrefix+key).Err()
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Set stores rec under key for ttl.
func (c *RedisRecordCache) Set(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode directory record: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache directory record: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (c *RedisRecordCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.keyPrefix + key
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to drop directory records: %w", err)
	}
	return nil
}

var (
	_ RecordCache = (*MemoryRecordCache)(nil)
	_ RecordCache = (*RedisRecordCache)(nil)
)
