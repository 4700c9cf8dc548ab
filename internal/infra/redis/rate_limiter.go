package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter per user, used to throttle the
// chat endpoint.
type RateLimiter struct {
	cli    RedisClient
	limit  int64
	window time.Duration
}

func NewRateLimiter(cli RedisClient, limit int64, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{cli: cli, limit: limit, window: window}
}

// Allow increments the caller's window counter and reports whether the
// request is within the limit. Errors fail open: a broken limiter must not
// take the chat path down.
func (r *RateLimiter) Allow(ctx context.Context, userID string) bool {
	k := fmt.Sprintf("rl:chat:%s", userID)
	n, err := r.cli.Incr(ctx, k)
	if err != nil {
		return true
	}
	if n == 1 {
		_ = r.cli.Expire(ctx, k, r.window)
	}
	return n <= r.limit
}
