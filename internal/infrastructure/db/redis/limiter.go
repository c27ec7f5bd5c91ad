package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLimiterPrefix = "rl:"

// LimitResult is the outcome of one Allow call.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// FixedWindowLimiter counts hits per key in fixed windows using INCR and
// EXPIRE. Key format: <prefix><key>:<window_start_unix>
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter allows max hits per key per window.
func NewFixedWindowLimiter(client *redis.Client, prefix string, max int, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = defaultLimiterPrefix
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (LimitResult, error) {
	now := l.now().UTC()
	start := now.Truncate(l.window)
	redisKey := l.key(key, start)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return LimitResult{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	return windowResult(incr.Val(), l.max, start, now, l.window), nil
}

// windowResult turns the hit count of the window starting at start into a
// decision at now. RetryAfter is set only when the hit is refused.
func windowResult(hits, max int64, start, now time.Time, window time.Duration) LimitResult {
	res := LimitResult{
		Allowed:   hits <= max,
		Remaining: max - hits,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = start.Add(window).Sub(now)
	}
	return res
}

func (l *FixedWindowLimiter) key(key string, start time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), start.Unix())
}
