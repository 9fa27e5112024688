package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("Not Enforced", func(t *testing.T) {
		allowed, err := NewRateLimiter(nil, false).Allow(ctx, "login", "1", 0, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Process Env Is Ignored", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		_, rdb := newTestRedis(t)
		rl := NewRateLimiter(rdb, true)
		allowed, err := rl.Allow(ctx, "login", "ip:9", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, err = rl.Allow(ctx, "login", "ip:9", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed, "enforce comes from the caller, not APP_ENV")
	})

	t.Run("Nil Redis When Enforced", func(t *testing.T) {
		_, err := NewRateLimiter(nil, true).Allow(ctx, "login", "1", 1, time.Minute)
		assert.Error(t, err)
	})

	t.Run("Window Enforced", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		rl := NewRateLimiter(rdb, true)

		for i := 0; i < 2; i++ {
			allowed, err := rl.Allow(ctx, "login", "ip:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := rl.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, mr.TTL("rl:login:ip:1"))

		mr.FastForward(time.Minute + time.Second)
		allowed, err = rl.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	mr, rdb := newTestRedis(t)
	rl := NewRateLimiter(rdb, true)

	app := fiber.New()
	app.Post("/login", rl.Limit(1, time.Minute, "login"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/closed", rl.LimitWithPolicy(1, time.Minute, FailClosed, "closed"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Store outage: FailOpen lets traffic through, FailClosed rejects it.
	mr.Close()
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/closed", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
