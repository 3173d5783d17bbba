package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	redisx "github.com/kirinyoku/pizza-go/internal/redis"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set of hit timestamps.
// KEYS[1] = window key
// ARGV    = now_ms, window_ms, limit, member
// Returns {allowed, hits, retry_ms}.
const luaSlidingWindow = `
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, ARGV[4])
redis.call('PEXPIRE', key, window)

local hits = redis.call('ZCARD', key)
if hits <= limit then
  return {1, hits, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = window - (now - (tonumber(oldest[2]) or now))
if retry < 0 then retry = 0 end
return {0, hits, retry}
`

// SlidingWindowLimiter caps how many requests one client may make within a
// rolling window. Limit and window can be swapped at runtime by Configure.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	script *redis.Script

	mu     sync.RWMutex
	limit  int
	window time.Duration
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
	}
}

// Configure replaces the limit and window used by subsequent calls.
func (l *SlidingWindowLimiter) Configure(limit int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = limit
	l.window = window
}

func (l *SlidingWindowLimiter) settings() (int, time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.limit, l.window
}

// Allow records one hit for client and reports whether it fits the window.
// A non-positive limit disables the check.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, client string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	const op = "repository.redis.SlidingWindowLimiter.Allow"

	limit, window := l.settings()
	if limit <= 0 {
		return true, 0, 0, nil
	}

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{redisx.KeyRateLimit(l.scope, client)},
		time.Now().UnixMilli(), window.Milliseconds(), limit, randomHex(12),
	).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return toInt(arr[0]) == 1, toInt(arr[1]), time.Duration(toInt(arr[2])) * time.Millisecond, nil
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
