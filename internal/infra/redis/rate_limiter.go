package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts hits per key in fixed windows. The first hit of a window
// arms the key's expiry, so idle counters disappear on their own.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow records one hit on key and reports whether the window still has room.
// A non-positive limit denies without touching Redis.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	hits, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("count hit on %s: %w", key, err)
	}
	if hits == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("open window on %s: %w", key, err)
		}
	}
	return hits <= int64(limit), nil
}

// UserActionKey scopes a counter to one owner and one action, e.g. premium toggles.
func UserActionKey(userID, action string) string {
	return "ratelimit:" + action + ":" + userID
}
