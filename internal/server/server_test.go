package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"skillswap/internal/config"
	"skillswap/internal/service"
	"skillswap/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "Passw0rd!"

func testConfig() *config.Config {
	return &config.Config{
		Env:        "test",
		Port:       "0",
		JWTSecret:  "test-secret",
		JWTTTL:     time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
}

type testServer struct {
	*Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T, rdb *redis.Client, searcher service.UserSearcher) *testServer {
	t.Helper()
	db := testutil.NewTestDB(t)
	s := NewServerWithDeps(testConfig(), db, rdb, searcher)
	t.Cleanup(s.shutdownFn)
	return &testServer{Server: s, app: s.App(), db: db}
}

// call sends a JSON request and decodes the JSON response body.
func (ts *testServer) call(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.do(t, req, token)
}

func (ts *testServer) callForm(t *testing.T, method, path string, form url.Values, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(t, req, token)
}

func (ts *testServer) do(t *testing.T, req *http.Request, token string) (int, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (ts *testServer) register(t *testing.T, username string, extra map[string]any) {
	t.Helper()
	body := map[string]any{
		"username":      username,
		"email":         username + "@example.com",
		"password":      testPassword,
		"name":          "Name " + username,
		"location":      "Berlin",
		"availability":  []string{"monday", "friday"},
		"skillsOffered": []any{map[string]string{"name": "Guitar", "category": "Music", "level": "Expert"}},
		"skillsWanted":  []any{"Excel"},
	}
	for k, v := range extra {
		body[k] = v
	}
	status, resp := ts.call(t, http.MethodPost, "/register", body, "")
	require.Equal(t, http.StatusOK, status, resp)
}

func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	status, resp := ts.call(t, http.MethodPost, "/login",
		map[string]string{"username": username, "password": testPassword}, "")
	require.Equal(t, http.StatusOK, status, resp)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLivenessCheck(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	status, body := ts.call(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Run("healthy without redis", func(t *testing.T) {
		ts := newTestServer(t, nil, nil)

		status, body := ts.call(t, http.MethodGet, "/health/ready", nil, "")
		assert.Equal(t, http.StatusOK, status)
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "healthy", checks["database"])
		assert.Equal(t, "unavailable", checks["redis"])
	})

	t.Run("database down", func(t *testing.T) {
		ts := newTestServer(t, nil, nil)
		sqlDB, err := ts.db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		status, body := ts.call(t, http.MethodGet, "/health/ready", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "unhealthy", body["status"])
	})
}

func TestWriteRoutesRequireDatabase(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	sqlDB, err := ts.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status, body := ts.call(t, http.MethodPost, "/register", map[string]any{"username": "alice"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "Database not connected", body["error"])
}

func TestRouteLimitsFollowLoadedConfig(t *testing.T) {
	_, rdb := testutil.NewTestRedis(t)
	limited := func(env string) int {
		t.Helper()
		cfg := testConfig()
		cfg.Env = env
		s := NewServerWithDeps(cfg, testutil.NewTestDB(t), rdb, nil)
		t.Cleanup(s.shutdownFn)
		ts := &testServer{Server: s, app: s.App()}

		rejected := 0
		for i := 0; i < 12; i++ {
			status, _ := ts.call(t, http.MethodPost, "/login", map[string]any{"username": "nobody", "password": "nope"}, "")
			if status == http.StatusTooManyRequests {
				rejected++
			}
		}
		return rejected
	}

	// Only config.yml says production; the process environment disagrees.
	t.Setenv("APP_ENV", "development")
	assert.Equal(t, 2, limited("production"), "login allows 10 per window")

	require.NoError(t, rdb.FlushAll(context.Background()).Err())
	t.Setenv("APP_ENV", "production")
	assert.Zero(t, limited("test"))
}

func TestUnknownRouteKeepsFiberStatus(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	status, body := ts.call(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.call(t, http.MethodGet, "/health/live", nil, "")

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestParseID(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.register(t, "alice", nil)
	token := ts.login(t, "alice")

	status, body := ts.call(t, http.MethodDelete, "/swaps/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", body["error"])
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{"id", "ID"},
		{"swapId", "swap ID"},
		{"toUserId", "to user ID"},
		{"username", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeParam(tt.param))
		})
	}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
