package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lcnetwork/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webOrigin = "http://localhost:5173"

func middlewareApp(t *testing.T) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: webOrigin + ",https://lcnetwork.app"}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.All("/api/posts", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func originRequest(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "/api/posts", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestMiddleware_CORSAllowList(t *testing.T) {
	app := middlewareApp(t)

	for _, tc := range []struct {
		origin string
		want   string
	}{
		{webOrigin, webOrigin},
		{"https://lcnetwork.app", "https://lcnetwork.app"},
		{"https://evil.example", ""},
	} {
		resp, err := app.Test(originRequest(http.MethodGet, tc.origin), -1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.Header.Get("Access-Control-Allow-Origin"), tc.origin)
		assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
		_ = resp.Body.Close()
	}
}

func TestMiddleware_RateLimitKeepsCORSAndSkipsPreflight(t *testing.T) {
	app := middlewareApp(t)

	for range 100 {
		resp, err := app.Test(originRequest(http.MethodPost, webOrigin), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(originRequest(http.MethodPost, webOrigin), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, webOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "Too many requests")

	preflight := originRequest(http.MethodOptions, webOrigin)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPut)
	preflight.Header.Set("Access-Control-Request-Headers", "authorization")
	pre, err := app.Test(preflight, -1)
	require.NoError(t, err)
	defer func() { _ = pre.Body.Close() }()
	assert.Equal(t, fiber.StatusNoContent, pre.StatusCode)
	assert.Contains(t, pre.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
}
