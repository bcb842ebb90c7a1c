package ttlcache

import (
	"context"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/cacheql/gqlcache/jsonvalue"
	"github.com/cacheql/gqlcache/logger"
)

// MemoryCache is the single-process backend. Expired payloads are dropped
// lazily on read and by a background sweeper that scans a randomized
// window of keys, rescanning at once when much is expiring.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string][]memoryEntry

	now   func() time.Time
	log   logger.Logger
	sweep time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type memoryEntry struct {
	expiresAt time.Time
	value     interface{}
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock injects the time source. Tests use it to step through expiry
// deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// WithSweepInterval sets the pause between sweeper rounds.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *MemoryCache) { c.sweep = d }
}

// NewMemoryCache creates the in-process backend and starts its sweeper.
// Call Close to stop the sweeper goroutine.
func NewMemoryCache(log logger.Logger, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		store: map[string][]memoryEntry{},
		now:   time.Now,
		log:   log,
		sweep: 5 * time.Second,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweeper()
	return c
}

// Close stops the background sweeper and waits for it to exit.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Insert appends value under key. A live payload deep-equal to value has
// its expiry refreshed instead of being duplicated.
func (c *MemoryCache) Insert(_ context.Context, key string, maxAge uint16, value interface{}) error {
	if emptyPayload(value) {
		return nil
	}
	now := c.now()
	expiresAt := expiry(now, maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.store[key]
	kept := entries[:0]
	replaced := false
	for _, e := range entries {
		if !e.expiresAt.After(now) {
			continue
		}
		if !replaced && reflect.DeepEqual(e.value, value) {
			e.expiresAt = expiresAt
			replaced = true
		}
		kept = append(kept, e)
	}
	if !replaced {
		kept = append(kept, memoryEntry{expiresAt: expiresAt, value: value})
	}
	c.store[key] = kept
	return nil
}

// Get returns copies of all live payloads at key. Callers consume matched
// values destructively, so sharing the stored trees would corrupt the
// cache. Fully expired keys are removed opportunistically.
func (c *MemoryCache) Get(_ context.Context, key string) ([]interface{}, error) {
	now := c.now()

	c.mu.RLock()
	entries, ok := c.store[key]
	var live []interface{}
	expired := false
	if ok {
		for _, e := range entries {
			if e.expiresAt.After(now) {
				live = append(live, jsonvalue.Copy(e.value))
			} else {
				expired = true
			}
		}
	}
	c.mu.RUnlock()

	if expired {
		c.mu.Lock()
		c.dropExpiredLocked(key, now)
		c.mu.Unlock()
	}

	if len(live) == 0 {
		return nil, nil
	}
	return live, nil
}

func (c *MemoryCache) dropExpiredLocked(key string, now time.Time) {
	entries, ok := c.store[key]
	if !ok {
		return
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.expiresAt.After(now) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(c.store, key)
		return
	}
	c.store[key] = kept
}

// sweeper periodically expires a randomized window of keys. Small caches
// are scanned whole; larger ones scan 19 + n/20 keys per round starting at
// a random offset. A round that expired at least 5% of its window, and at
// least 10 keys, runs the next round immediately.
func (c *MemoryCache) sweeper() {
	defer close(c.done)

	for {
		cleaned, window := c.sweepRound()

		wait := c.sweep
		if window > 0 && cleaned >= window/20 && cleaned >= 10 {
			c.log.Debug("cache sweep found many expired keys, rescanning", "cleaned", cleaned, "window", window)
			wait = 0
		}

		if wait == 0 {
			select {
			case <-c.stop:
				return
			default:
			}
			continue
		}
		select {
		case <-c.stop:
			return
		case <-time.After(wait):
		}
	}
}

func (c *MemoryCache) sweepRound() (cleaned, window int) {
	now := c.now()

	c.mu.RLock()
	keys := make([]string, 0, len(c.store))
	for k := range c.store {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	start, count := 0, len(keys)
	if len(keys) > 20 {
		count = 19 + len(keys)/20
		start = rand.Intn(len(keys) - count + 1)
	}

	var stale []string
	c.mu.RLock()
	for _, key := range keys[start : start+count] {
		for _, e := range c.store[key] {
			if !e.expiresAt.After(now) {
				stale = append(stale, key)
				break
			}
		}
	}
	c.mu.RUnlock()

	if len(stale) > 0 {
		c.mu.Lock()
		for _, key := range stale {
			c.dropExpiredLocked(key, now)
		}
		c.mu.Unlock()
	}

	return len(stale), count
}
