package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skillsync/internal/services"
)

// MessageHandler serves direct messages between connected users.
type MessageHandler struct {
	responder
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService, logger *zerolog.Logger, development bool) *MessageHandler {
	return &MessageHandler{responder: newResponder(logger, development), messages: messages}
}

// GetConversation returns the thread with ?userId= and marks incoming messages read.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	views, err := h.messages.Conversation(c.Request.Context(), currentUserID(c), c.Query("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"messages": views}, "")
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !h.bindJSON(c, &req, "Receiver ID and message content are required") {
		return
	}

	view, err := h.messages.Send(c.Request.Context(), currentUserID(c), req.ReceiverID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"data": view}, "Message sent successfully")
}

func (h *MessageHandler) ListConversations(c *gin.Context) {
	summaries, err := h.messages.Conversations(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"conversations": summaries}, "")
}
