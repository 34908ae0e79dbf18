package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	core "github.com/wadjakorntonsri/linkgate/pkg/core/ratelimit"
)

// hitScript starts a window on the first hit and returns {count, pttl}.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisStore shares rate-limit windows between instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects using a redis:// URL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: ping redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "ratelimit:"}, nil
}

// Hit ignores now; Redis key expiry is the window clock.
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (core.Window, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return core.Window{}, fmt.Errorf("ratelimit: hit: %w", err)
	}

	if len(res) != 2 {
		return core.Window{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}

	return core.Window{
		Count:   res[0],
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ core.Store = (*RedisStore)(nil)
