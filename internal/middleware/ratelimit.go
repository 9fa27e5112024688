package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// RateLimiter enforces fixed-window limits stored in Redis. A limiter built
// with enforce false lets every request through.
type RateLimiter struct {
	rdb     *redis.Client
	enforce bool
}

// NewRateLimiter returns a limiter over rdb. Callers pass enforce from the
// loaded configuration so every limiter in a process agrees.
func NewRateLimiter(rdb *redis.Client, enforce bool) *RateLimiter {
	return &RateLimiter{rdb: rdb, enforce: enforce}
}

// Allow reports whether one more hit on resource by id fits in a fixed
// window of limit hits.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if !l.enforce {
		return true, nil
	}
	if l.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// INCR and set EXPIRE if new
	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// Limit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated userID when set, otherwise by remote IP.
func (l *RateLimiter) Limit(limit int, window time.Duration, name string) fiber.Handler {
	return l.LimitWithPolicy(limit, window, FailOpen, name)
}

// LimitWithPolicy returns a Fiber middleware enforcing `limit` requests per `window` with a specific failure policy.
func (l *RateLimiter) LimitWithPolicy(limit int, window time.Duration, policy FailPolicy, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			id = fmt.Sprintf("user:%d", uid)
		}

		allowed, err := l.Allow(c.UserContext(), name, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					slog.String("resource", name), slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
