package ttlcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cacheql/gqlcache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercised only when a live backend is provided, e.g.
// REDIS_TEST_URL=redis://localhost:6379 go test ./ttlcache
func newRedisTestCache(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	c, err := NewRedisCache(context.Background(), url, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisInsertGet(t *testing.T) {
	c := newRedisTestCache(t)
	ctx := context.Background()
	key := "gqlcache-test:" + t.Name()

	require.NoError(t, c.Insert(ctx, key, 60, map[string]interface{}{"a": 1.0}))
	require.NoError(t, c.Insert(ctx, key, 60, map[string]interface{}{"b": 2.0}))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRedisExpiryByScore(t *testing.T) {
	c := newRedisTestCache(t)
	ctx := context.Background()
	key := "gqlcache-test:" + t.Name()

	require.NoError(t, c.Insert(ctx, key, 60, map[string]interface{}{"live": 1.0}))

	// Move the clock past an entry inserted with a short lifetime.
	c.now = func() time.Time { return time.Now().Add(-2 * time.Second) }
	require.NoError(t, c.Insert(ctx, key, 1, map[string]interface{}{"dead": 1.0}))
	c.now = time.Now

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].(map[string]interface{}), "live")
}

func TestRedisGetMulti(t *testing.T) {
	c := newRedisTestCache(t)
	ctx := context.Background()
	k1 := "gqlcache-test:multi1"
	k2 := "gqlcache-test:multi2"

	require.NoError(t, c.Insert(ctx, k1, 60, map[string]interface{}{"a": 1.0}))
	require.NoError(t, c.Insert(ctx, k2, 60, map[string]interface{}{"b": 2.0}))

	got, err := c.GetMulti(ctx, []string{k1, k2, "gqlcache-test:absent"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
