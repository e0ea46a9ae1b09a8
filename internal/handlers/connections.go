package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skillsync/internal/models"
	"skillsync/internal/services"
)

// ConnectionHandler serves the connection request lifecycle.
type ConnectionHandler struct {
	responder
	connections *services.ConnectionService
}

func NewConnectionHandler(connections *services.ConnectionService, logger *zerolog.Logger, development bool) *ConnectionHandler {
	return &ConnectionHandler{responder: newResponder(logger, development), connections: connections}
}

func (h *ConnectionHandler) ListConnections(c *gin.Context) {
	status := models.ConnectionStatus(c.Query("status"))

	views, err := h.connections.List(c.Request.Context(), currentUserID(c), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"connections": views}, "")
}

type connectionRequest struct {
	ReceiverID string `json:"receiverId"`
}

func (h *ConnectionHandler) RequestConnection(c *gin.Context) {
	var req connectionRequest
	if !h.bindJSON(c, &req, "Receiver ID is required") {
		return
	}

	conn, err := h.connections.Request(c.Request.Context(), currentUserID(c), req.ReceiverID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"connection": conn}, "Connection request sent successfully")
}

type respondRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

func (h *ConnectionHandler) RespondToConnection(c *gin.Context) {
	var req respondRequest
	if !h.bindJSON(c, &req, "Invalid action") {
		return
	}

	conn, err := h.connections.Respond(c.Request.Context(), currentUserID(c), c.Param("id"), req.Action)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"connection": conn}, "Connection "+req.Action+"ed successfully")
}

func (h *ConnectionHandler) RemoveConnection(c *gin.Context) {
	if err := h.connections.Remove(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Connection removed successfully")
}

func (h *ConnectionHandler) ConnectionStatus(c *gin.Context) {
	status, ref, err := h.connections.Status(c.Request.Context(), currentUserID(c), c.Query("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": status, "connection": ref}, "")
}
