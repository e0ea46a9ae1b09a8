package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"skillsync/internal/auth"
	"skillsync/internal/middleware"
	"skillsync/internal/models"
	"skillsync/internal/repositories"
	"skillsync/internal/services"
	"skillsync/internal/telemetry"
)

const testUserHeader = "X-Test-User"

type testEnv struct {
	store  *repositories.Memory
	users  *services.UserService
	router *gin.Engine
}

// stubSession trusts the X-Test-User header instead of a cookie.
func stubSession(store *repositories.Memory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(testUserHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized: No token provided"})
			return
		}
		user, _ := store.GetUser(c.Request.Context(), id)
		middleware.SetIdentity(c, models.Identity{ID: id, Name: user.Name, Email: user.Email, IsOnboarded: user.IsOnboarded})
		c.Next()
	}
}

func withUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetIdentity(c, models.Identity{ID: id})
		c.Next()
	}
}

func newTestEnv(t *testing.T, audit *telemetry.AuditEmitter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	store := repositories.NewMemory()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	users := services.NewUserService(store, tokens, nil, &logger)
	connections := services.NewConnectionService(store, store, nil, &logger)
	messages := services.NewMessageService(store, store, connections, nil, &logger)

	router := gin.New()
	API{
		Auth:        NewAuthHandler(users, audit, false, &logger, false),
		Users:       NewUserHandler(users, &logger, false),
		Connections: NewConnectionHandler(connections, &logger, false),
		Messages:    NewMessageHandler(messages, &logger, false),
	}.Register(router.Group("/api"), stubSession(store))

	return &testEnv{store: store, users: users, router: router}
}

func (e *testEnv) createUser(t *testing.T, name string) models.User {
	t.Helper()
	u, err := e.store.CreateUser(context.Background(), models.User{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return u
}

// do sends body as JSON on behalf of userID ("" for anonymous).
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// connect makes an accepted connection from a to b over HTTP and returns its id.
func (e *testEnv) connect(t *testing.T, a, b models.User) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/connections", a.ID, gin.H{"receiverId": b.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["connection"].(map[string]any)["id"].(string)

	rec = e.do(t, http.MethodPatch, "/api/connections/"+id, b.ID, gin.H{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func servicesSignup(name string) services.SignupInput {
	return services.SignupInput{Name: name, Email: name + "@x.io", Password: "pw-" + name}
}
