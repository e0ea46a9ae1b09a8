package middleware

import (
	"context"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skillsync/internal/auth"
	"skillsync/internal/models"
)

var (
	publicPages     = []string{"/login", "/signup"}
	protectedPages  = []string{"/dashboard", "/onboarding", "/profile", "/search", "/connections", "/messages"}
	backendPrefixes = []string{"/api", "/metrics", "/healthz", "/debug"}
)

// Session is what the page gate knows about the caller.
type Session struct {
	HasToken    bool
	Valid       bool
	IsOnboarded bool
}

// PageRedirect decides where a page request must go. An empty result means
// the page is served.
func PageRedirect(pagePath string, s Session) string {
	for _, p := range publicPages {
		if pagePath == p {
			return ""
		}
	}
	if !s.HasToken {
		if hasAnyPrefix(pagePath, protectedPages) {
			return "/login"
		}
		return ""
	}
	if !s.Valid {
		return "/login"
	}
	if !s.IsOnboarded && pagePath != "/onboarding" {
		return "/onboarding"
	}
	if s.IsOnboarded && pagePath == "/onboarding" {
		return "/dashboard"
	}
	return ""
}

// UserLookup resolves the user behind a session.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

// PageGate serves the single page app from dir and steers page requests by
// session state. Existing files are served without a session check.
func PageGate(sessions SessionVerifier, users UserLookup, dir string, logger *zerolog.Logger) gin.HandlerFunc {
	fs := gin.Dir(dir, false)

	return func(c *gin.Context) {
		reqPath := path.Clean("/" + c.Request.URL.Path)
		if hasAnyPrefix(reqPath, backendPrefixes) || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
			return
		}

		if reqPath != "/" && isFile(fs, reqPath) {
			c.FileFromFS(reqPath, fs)
			return
		}

		if target := PageRedirect(reqPath, pageSession(c, sessions, users, logger)); target != "" {
			c.Redirect(http.StatusTemporaryRedirect, target)
			return
		}

		if !isFile(fs, "/index.html") {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	}
}

// pageSession reads the onboarding flag from the store, not the token, so a
// user who just finished onboarding is not sent back to it.
func pageSession(c *gin.Context, sessions SessionVerifier, users UserLookup, logger *zerolog.Logger) Session {
	if _, err := c.Cookie(auth.CookieName); err != nil {
		return Session{}
	}

	result, ok := sessions.RequireAuth(c.Request).(*auth.Authenticated)
	if !ok {
		return Session{HasToken: true}
	}
	user, err := users.GetUser(c.Request.Context(), result.Identity.ID)
	if err != nil {
		logger.Debug().Err(err).Str("user_id", result.Identity.ID).Msg("page session user lookup failed")
		return Session{HasToken: true}
	}
	return Session{HasToken: true, Valid: true, IsOnboarded: user.IsOnboarded}
}

func isFile(fs http.FileSystem, name string) bool {
	f, err := fs.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

func hasAnyPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
