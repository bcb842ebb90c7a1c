package ttlcache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cacheql/gqlcache/logger"
	"github.com/redis/go-redis/v9"
	"github.com/samsarahq/go/oops"
)

// RedisCache stores each cache entry as a sorted set keyed by the cache
// key, with the payload's expiry timestamp as its score. Expiry is applied
// natively: reads drop members scored at or below now and return the
// rest, all in one pipelined round trip. ZADD on an existing member
// refreshes its score, which collapses duplicate payloads for free.
type RedisCache struct {
	client *redis.Client
	log    logger.Logger
	now    func() time.Time
}

// NewRedisCache connects to the backend described by url
// (redis://[password@]host:port[/db]) and verifies it with a PING.
func NewRedisCache(ctx context.Context, url string, log logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Wrapf(err, "parsing redis connection string")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, oops.Wrapf(err, "pinging redis at %s", opts.Addr)
	}

	log.Info("connected to redis cache backend", "addr", opts.Addr)
	return &RedisCache{client: client, log: log, now: time.Now}, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Insert(ctx context.Context, key string, maxAge uint16, value interface{}) error {
	if emptyPayload(value) {
		return nil
	}
	member, err := json.Marshal(value)
	if err != nil {
		return oops.Wrapf(err, "encoding cache payload for %q", key)
	}

	score := float64(expiry(c.now(), maxAge).Unix())
	if err := c.client.ZAdd(ctx, key, redis.Z{Score: score, Member: string(member)}).Err(); err != nil {
		return oops.Wrapf(err, "inserting cache payload for %q", key)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]interface{}, error) {
	results, err := c.GetMulti(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	return results[key], nil
}

// GetMulti answers several keys in one pipelined round trip: for each key,
// remove members expired by score, then return the live range.
func (c *RedisCache) GetMulti(ctx context.Context, keys []string) (map[string][]interface{}, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	now := strconv.FormatInt(c.now().Unix(), 10)

	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(keys))
	for i, key := range keys {
		pipe.ZRemRangeByScore(ctx, key, "-inf", now)
		cmds[i] = pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + now, Max: "+inf"})
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, oops.Wrapf(err, "reading cache keys")
	}

	results := make(map[string][]interface{}, len(keys))
	for i, key := range keys {
		members, err := cmds[i].Result()
		if err != nil || len(members) == 0 {
			continue
		}
		payloads := make([]interface{}, 0, len(members))
		for _, member := range members {
			var value interface{}
			if err := json.Unmarshal([]byte(member), &value); err != nil {
				c.log.Warn("dropping undecodable cache payload", "key", key, "error", err)
				continue
			}
			payloads = append(payloads, value)
		}
		if len(payloads) > 0 {
			results[key] = payloads
		}
	}
	return results, nil
}
