package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lcnetwork/internal/config"
	"lcnetwork/internal/middleware"
	"lcnetwork/internal/models"
	"lcnetwork/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.OpenSQLite(t)
	cfg := &config.Config{
		JWTSecret:           testSecret,
		Port:                "0",
		UploadDir:           t.TempDir(),
		PaginationPerPage:   20,
		MaxAppealsPerTarget: 1,
		FeatureFlags:        "keyword_screening=on,report_queueing=on,otp_email=off",
	}
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testServer{srv: srv, app: srv.App(), db: db}
}

func (ts *testServer) user(t *testing.T, name string, opts ...testutil.UserOption) *models.User {
	t.Helper()
	return testutil.CreateUser(t, ts.db, name, opts...)
}

func (ts *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := middleware.IssueToken(testSecret, u.ID, u.Username, middleware.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request and decodes a JSON object response.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return ts.send(t, req)
}

// upload posts one multipart file plus form fields.
func (ts *testServer) upload(t *testing.T, path, token, filename string, content []byte, fields map[string]string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func items(body map[string]any) []any {
	list, _ := body["items"].([]any)
	return list
}
