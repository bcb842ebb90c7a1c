// Package ttlcache provides the shared query-result cache: a concurrent
// mapping from cache key to a list of timestamped JSON payloads. Each
// insert appends a new versioned fragment; reads return every payload that
// has not yet expired, and the caller merges them structurally. Two
// backends satisfy the contract: an in-process map with a background
// sweeper, and a Redis sorted set scored by expiry timestamp.
package ttlcache

import (
	"context"
	"time"
)

// Cache is the capability the cache handler consumes. Implementations must
// be safe for concurrent use.
//
// Insert appends value under key with the given lifetime. Existing
// payloads at the same key are retained until they expire; inserting a
// payload identical to a live one refreshes that payload's expiry instead
// of duplicating it.
//
// Get returns all non-expired payloads at key, or nil if the key is
// missing or fully expired. Backend failures are returned so callers can
// degrade them to a miss.
type Cache interface {
	Insert(ctx context.Context, key string, maxAge uint16, value interface{}) error
	Get(ctx context.Context, key string) ([]interface{}, error)
}

// MultiGetter is implemented by backends that can answer several keys in
// one round trip. The cache handler prefers it for the per-request
// candidate-key fan-out.
type MultiGetter interface {
	GetMulti(ctx context.Context, keys []string) (map[string][]interface{}, error)
}

// emptyPayload reports values that are not worth a cache slot: nil and
// empty objects carry no answerable fields.
func emptyPayload(value interface{}) bool {
	if value == nil {
		return true
	}
	if m, ok := value.(map[string]interface{}); ok {
		return len(m) == 0
	}
	return false
}

func expiry(now time.Time, maxAge uint16) time.Time {
	return now.Add(time.Duration(maxAge) * time.Second)
}
