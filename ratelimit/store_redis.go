package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "light_auth:ratelimit:"

// hitScript mirrors apply() so the counter update is a single atomic step on the server.
// Returns {allowed, count, windowStartMs}.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
local count = tonumber(redis.call('HGET', KEYS[1], 'count'))
if start == nil or count == nil or now - start >= window then
  redis.call('HSET', KEYS[1], 'start', now, 'count', 1)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, 1, now}
end
if count < max then
  count = redis.call('HINCRBY', KEYS[1], 'count', 1)
  return {1, count, start}
end
return {0, count, start}
`)

// RedisStore shares counters between instances.
type RedisStore struct {
	client redis.Scripter
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (Result, error) {
	vals, err := hitScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), window.Milliseconds(), max).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("[RedisStore.Hit] %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("[RedisStore.Hit] unexpected script result %v", vals)
	}
	return Result{
		Allowed:     vals[0] == 1,
		Count:       int(vals[1]),
		WindowStart: time.UnixMilli(vals[2]),
	}, nil
}

// NewRedisClient parses url and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[NewRedisClient] parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[NewRedisClient] ping: %w", err)
	}
	return client, nil
}
