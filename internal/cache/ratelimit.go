package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateKeyPrefix is the Valkey key namespace for attempt counters.
const rateKeyPrefix = "ratelimit:"

// fixedWindow increments the counter and starts its expiry on the first
// attempt of a window. Returns the new count and the remaining TTL in ms.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RateLimiter counts attempts per key in fixed windows shared by every
// server instance.
type RateLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit attempts per key and window. scope separates
// the counters of different endpoints.
func NewRateLimiter(client *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, scope: scope, limit: limit, window: window}
}

// Allow counts one attempt for key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := fixedWindow.Run(ctx, rl.client,
		[]string{rateKeyPrefix + rl.scope + ":" + key},
		rl.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", rl.scope, err)
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count > int64(rl.limit) {
		if ttl <= 0 {
			ttl = rl.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}
