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
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimitHit_DisabledOutsideDeployedEnvs(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		t.Run("env="+env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			usage, err := LimitLogin.Hit(context.Background(), nil, "ip:1.2.3.4")
			require.NoError(t, err)
			assert.True(t, usage.Allowed)
		})
	}

	t.Setenv("APP_ENV", "production")
	_, err := LimitLogin.Hit(context.Background(), nil, "ip:1.2.3.4")
	assert.ErrorIs(t, err, ErrNoRateLimitStore)
}

func TestLimitHit_FixedWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	l := Limit{Name: "resend_otp", Max: 3, Window: time.Minute}

	for i := range 3 {
		usage, err := l.Hit(ctx, rdb, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, usage.Allowed, "hit %d", i+1)
		assert.Equal(t, 2-i, usage.Remaining)
	}

	usage, err := l.Hit(ctx, rdb, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, usage.Allowed)
	assert.Zero(t, usage.Remaining)
	assert.Equal(t, time.Minute, mr.TTL("rl:resend_otp:ip:10.0.0.1"))

	other, err := l.Hit(ctx, rdb, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "subjects are counted separately")

	mr.FastForward(time.Minute + time.Second)
	usage, err = l.Hit(ctx, rdb, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, usage.Allowed, "window expiry resets the counter")
}

func TestLimitHit_RepairsKeyWithoutExpiry(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	require.NoError(t, mr.Set("rl:report:user:9", "4"))

	usage, err := LimitReport.Hit(context.Background(), rdb, "user:9")
	require.NoError(t, err)
	assert.Equal(t, LimitReport.Max-5, usage.Remaining)
	assert.Equal(t, LimitReport.Window, mr.TTL("rl:report:user:9"))
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(t *testing.T, app *fiber.App) *http.Response {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/r", nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("fail open without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Post("/r", RateLimit(nil, LimitCreatePost), ok)
		assert.Equal(t, http.StatusOK, get(t, app).StatusCode)
	})

	t.Run("fail closed without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Post("/r", RateLimit(nil, LimitVerifyOTP), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, app).StatusCode)
	})

	t.Run("over quota", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Post("/r", RateLimit(rdb, Limit{Name: "otp", Max: 1, Window: time.Minute}), ok)

		first := get(t, app)
		assert.Equal(t, http.StatusOK, first.StatusCode)
		assert.Equal(t, "1", first.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", first.Header.Get("X-RateLimit-Remaining"))

		second := get(t, app)
		assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
		assert.Equal(t, "60", second.Header.Get("Retry-After"))
	})

	t.Run("keys by user once authenticated", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr, rdb := newTestRedis(t)
		app := fiber.New()
		app.Post("/r", func(c *fiber.Ctx) error {
			c.Locals("userID", uint(42))
			return c.Next()
		}, RateLimit(rdb, LimitFriendRequest), ok)

		assert.Equal(t, http.StatusOK, get(t, app).StatusCode)
		assert.True(t, mr.Exists("rl:friend_request:user:42"))
	})
}
