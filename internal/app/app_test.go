package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsync/internal/auth"
	"skillsync/internal/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html></html>"), 0o644))

	logger := zerolog.Nop()
	cfg := config.Config{
		Port:        "0",
		AppEnv:      "test",
		StoreDriver: config.DriverMemory,
		JWTSecret:   "secret",
		TokenTTL:    time.Hour,
		ServiceName: "skillsync-test",
		StaticDir:   static,
		DebugRoutes: true,
	}
	a, err := New(context.Background(), cfg, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skillsync_http_requests_total")

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionRoundTrip(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, postJSON("/api/users/signup", `{"name":"Ann","email":"ann@x.io","password":"pw"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(a, postJSON("/api/users/login", `{"email":"ann@x.io","password":"pw"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.AddCookie(session)
	rec = serve(a, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isOnboarded":false`)

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	rec = serve(a, req)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/onboarding", rec.Header().Get("Location"))

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/api/connections", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	logger := zerolog.Nop()

	_, err := OpenStore(context.Background(), config.Config{StoreDriver: "redis"}, &logger)

	assert.Error(t, err)
}
