package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillsync/internal/mocks"
	"skillsync/internal/services"
)

func TestSendMessageRequiresConnection(t *testing.T) {
	env := newTestEnv(t, nil)
	ann, bob := env.createUser(t, "ann"), env.createUser(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/messages", ann.ID, gin.H{"receiverId": bob.ID, "content": "hi"})

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"You can only message users you are connected with"}`, rec.Body.String())
}

func TestMessagingFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ann, bob := env.createUser(t, "ann"), env.createUser(t, "bob")
	env.connect(t, ann, bob)

	rec := env.do(t, http.MethodPost, "/api/messages", ann.ID, gin.H{"receiverId": bob.ID, "content": "  hi bob  "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Equal(t, "Message sent successfully", resp["message"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "hi bob", data["content"])
	assert.Equal(t, false, data["read"])
	assert.Equal(t, map[string]any{"id": ann.ID, "name": "ann", "email": "ann@example.com"}, data["sender"])
	assert.Equal(t, bob.ID, data["receiver"].(map[string]any)["id"])

	rec = env.do(t, http.MethodGet, "/api/messages/conversations", bob.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode(t, rec)["conversations"].([]any)
	require.Len(t, convs, 1)
	conv := convs[0].(map[string]any)
	assert.Equal(t, "hi bob", conv["lastMessage"])
	assert.Equal(t, true, conv["unread"])

	rec = env.do(t, http.MethodGet, "/api/messages?userId="+ann.ID, bob.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode(t, rec)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, true, msgs[0].(map[string]any)["read"])

	rec = env.do(t, http.MethodGet, "/api/messages/conversations", bob.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conv = decode(t, rec)["conversations"].([]any)[0].(map[string]any)
	assert.Equal(t, false, conv["unread"])
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ann, bob := env.createUser(t, "ann"), env.createUser(t, "bob")
	env.connect(t, ann, bob)

	rec := env.do(t, http.MethodPost, "/api/messages", ann.ID, gin.H{"receiverId": bob.ID, "content": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message content cannot be empty", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/messages", ann.ID, gin.H{"content": "hi"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Receiver ID and message content are required", decode(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/messages", ann.ID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User ID is required", decode(t, rec)["error"])
}

func TestInternalErrorDetail(t *testing.T) {
	logger := zerolog.Nop()

	for _, tc := range []struct {
		name        string
		development bool
		want        string
	}{
		{"production hides detail", false, "Failed to fetch conversations"},
		{"development shows detail", true, "Failed to fetch conversations: " + assert.AnError.Error()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			msgs := new(mocks.MessageRepositoryMock)
			msgs.On("ListMessagesForUser", mock.Anything, "u1").Return(nil, assert.AnError).Once()
			users := new(mocks.UserRepositoryMock)
			connections := services.NewConnectionService(new(mocks.ConnectionRepositoryMock), users, nil, &logger)
			handler := NewMessageHandler(services.NewMessageService(msgs, users, connections, nil, &logger), &logger, tc.development)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.GET("/conversations", withUser("u1"), handler.ListConversations)

			env := &testEnv{router: router}
			rec := env.do(t, http.MethodGet, "/conversations", "", nil)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tc.want+`"}`, rec.Body.String())
			msgs.AssertExpectations(t)
		})
	}
}
