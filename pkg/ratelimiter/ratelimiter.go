package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/blooddonation/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitError carries how long the caller has to wait.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

// Limiter allows one action per user per window using SetNX keys.
// A nil redis client disables limiting.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func key(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// Acquire locks action for userID during window. It returns a release func
// for rolling back the lock when the guarded operation fails.
func (l *Limiter) Acquire(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (func(), error) {
	if l == nil || l.rdb == nil || window <= 0 {
		return func() {}, nil
	}

	k := key(userID, action)
	wasSet, err := l.rdb.SetNX(ctx, k, "locked", window).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	if !wasSet {
		ttl, err := l.rdb.TTL(ctx, k).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("please wait %.0f seconds before trying again", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	release := func() {
		_ = l.rdb.Del(context.Background(), k).Err()
	}
	return release, nil
}
