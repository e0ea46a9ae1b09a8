package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skillsync/internal/middleware"
	"skillsync/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromContext(c.Request.Context())
	if requestID == "" {
		requestID = observability.RequestIDFromRequest(c.Request)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if identity, ok := middleware.CurrentIdentity(c); ok && identity.ID != "" {
		id := identity.ID
		return &id
	}
	return nil
}

// currentUserID returns the authenticated caller's identity; routes using it sit
// behind RequireSession.
func currentUserID(c *gin.Context) string {
	identity, _ := middleware.CurrentIdentity(c)
	return identity.ID
}
