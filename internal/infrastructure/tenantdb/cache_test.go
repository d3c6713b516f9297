package tenantdb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		cache := NewMemoryRecordCache()
		rec := Record{ID: uuid.New(), Code: "ACME", Subdomain: "acme"}

		require.NoError(t, cache.Set(ctx, "id:test", rec, time.Minute))

		got, ok, err := cache.Get(ctx, "id:test")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, got)
	})

	t.Run("missing key", func(t *testing.T) {
		cache := NewMemoryRecordCache()

		_, ok, err := cache.Get(ctx, "id:nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired entries are dropped on read", func(t *testing.T) {
		cache := NewMemoryRecordCache()
		rec := Record{ID: uuid.New()}

		require.NoError(t, cache.Set(ctx, "id:short", rec, time.Millisecond))
		time.Sleep(10 * time.Millisecond)

		_, ok, err := cache.Get(ctx, "id:short")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("delete removes multiple keys", func(t *testing.T) {
		cache := NewMemoryRecordCache()
		rec := Record{ID: uuid.New()}

		require.NoError(t, cache.Set(ctx, "a", rec, time.Minute))
		require.NoError(t, cache.Set(ctx, "b", rec, time.Minute))
		require.NoError(t, cache.Delete(ctx, "a", "b", "missing"))

		assert.Equal(t, 0, cache.Len())
	})

	t.Run("set refreshes expiry", func(t *testing.T) {
		cache := NewMemoryRecordCache()
		rec := Record{ID: uuid.New()}

		require.NoError(t, cache.Set(ctx, "k", rec, time.Millisecond))
		require.NoError(t, cache.Set(ctx, "k", rec, time.Minute))
		time.Sleep(10 * time.Millisecond)

		_, ok, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestNewRedisRecordCache_KeyPrefix(t *testing.T) {
	t.Run("empty prefix uses the default namespace", func(t *testing.T) {
		cache := NewRedisRecordCache(nil, "")
		assert.Equal(t, "tenantdb:directory:", cache.keyPrefix)
	})

	t.Run("custom prefix gets a trailing separator", func(t *testing.T) {
		cache := NewRedisRecordCache(nil, "tenantdb")
		assert.Equal(t, "tenantdb:", cache.keyPrefix)
	})

	t.Run("prefix ending in a separator is kept as is", func(t *testing.T) {
		cache := NewRedisRecordCache(nil, "routing:")
		assert.Equal(t, "routing:", cache.keyPrefix)
	})
}
