package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ann, bob := env.createUser(t, "ann"), env.createUser(t, "bob")

	rec := env.do(t, http.MethodGet, "/api/connections/status?userId="+bob.ID, ann.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"status":"none","connection":null}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/connections", ann.ID, gin.H{"receiverId": bob.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "Connection request sent successfully", resp["message"])
	conn := resp["connection"].(map[string]any)
	assert.Equal(t, "pending", conn["status"])
	assert.Equal(t, ann.ID, conn["sender"])
	id := conn["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/connections", bob.ID, gin.H{"receiverId": ann.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Connection request already exists", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPatch, "/api/connections/"+id, ann.ID, gin.H{"action": "accept"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized to modify this connection", decode(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/connections?status=pending", bob.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode(t, rec)["connections"].([]any)
	require.Len(t, pending, 1)
	item := pending[0].(map[string]any)
	assert.Equal(t, false, item["isSender"])
	assert.Equal(t, ann.ID, item["user"].(map[string]any)["id"])

	rec = env.do(t, http.MethodPatch, "/api/connections/"+id, bob.ID, gin.H{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode(t, rec)
	assert.Equal(t, "Connection accepted successfully", resp["message"])
	assert.Equal(t, "accepted", resp["connection"].(map[string]any)["status"])

	rec = env.do(t, http.MethodGet, "/api/connections/status?userId="+bob.ID, ann.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"status":"accepted","connection":{"id":"`+id+`","isSender":true,"status":"accepted"}}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/connections", ann.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["connections"], 1)

	carl := env.createUser(t, "carl")
	rec = env.do(t, http.MethodDelete, "/api/connections/"+id, carl.ID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/connections/"+id, bob.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Connection removed successfully"}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/connections/"+id, bob.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectionValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ann := env.createUser(t, "ann")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		error  string
	}{
		{"empty receiver", http.MethodPost, "/api/connections", gin.H{}, http.StatusBadRequest, "Receiver ID is required"},
		{"self", http.MethodPost, "/api/connections", gin.H{"receiverId": ann.ID}, http.StatusBadRequest, "Cannot send connection request to yourself"},
		{"unknown receiver", http.MethodPost, "/api/connections", gin.H{"receiverId": "ghost"}, http.StatusNotFound, "User not found"},
		{"unknown action", http.MethodPatch, "/api/connections/x", gin.H{"action": "ignore"}, http.StatusBadRequest, "Invalid action"},
		{"missing connection", http.MethodPatch, "/api/connections/x", gin.H{"action": "reject"}, http.StatusNotFound, "Connection not found"},
		{"status without user", http.MethodGet, "/api/connections/status", nil, http.StatusBadRequest, "User ID is required"},
		{"bad status filter", http.MethodGet, "/api/connections?status=blocked", nil, http.StatusBadRequest, "Invalid status"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, ann.ID, tc.body)

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"success":false,"error":"`+tc.error+`"}`, rec.Body.String())
		})
	}
}

func TestConnectionsRequireSession(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/connections", "/api/connections/status?userId=x", "/api/messages/conversations", "/api/users/search"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
