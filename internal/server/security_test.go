package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health/live", "/api/posts/", "/api/does-not-exist"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := ts.app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
		assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"), path)
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID), path)
	}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(fiber.HeaderXRequestID, "trace-me-123")
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "trace-me-123", resp.Header.Get(fiber.HeaderXRequestID))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/users/profile", "/api/notifications/", "/api/moderation/queue"} {
		status, body := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		assert.NotEmpty(t, body["error"], path)
	}

	status, _ := ts.do(t, http.MethodGet, "/api/users/profile", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthProbes(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "up", body["status"])

	status, body = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status, "redis is not configured")
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}
