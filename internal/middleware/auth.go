package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillsync/internal/apperr"
	"skillsync/internal/auth"
	"skillsync/internal/models"
)

const (
	identityKey = "identity"
	userIDKey   = "userID"
)

// SessionVerifier checks the session carried by a request.
type SessionVerifier interface {
	RequireAuth(r *http.Request) auth.AuthResult
}

// RequireSession rejects requests without a valid session cookie and stores
// the caller's identity on the context.
func RequireSession(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch result := sessions.RequireAuth(c.Request).(type) {
		case *auth.Authenticated:
			SetIdentity(c, result.Identity)
			c.Next()
		case *auth.Rejected:
			c.AbortWithStatusJSON(result.Status, gin.H{"success": false, "error": apperr.MessageOf(result.Err, "Unauthorized")})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		}
	}
}

// SetIdentity stores the authenticated caller on c.
func SetIdentity(c *gin.Context, identity models.Identity) {
	c.Set(identityKey, identity)
	c.Set(userIDKey, identity.ID)
}

// CurrentIdentity returns the caller stored by RequireSession.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := identity.(models.Identity)
	return id, ok
}
