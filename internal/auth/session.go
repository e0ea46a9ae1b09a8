package auth

import (
	"errors"
	"net/http"
	"time"

	"skillsync/internal/apperr"
	"skillsync/internal/models"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// AuthResult is the outcome of RequireAuth: *Authenticated or *Rejected.
type AuthResult interface {
	authResult()
}

// Authenticated carries the caller established from the session cookie.
type Authenticated struct {
	Identity models.Identity
}

// Rejected is a ready-to-send failure. Err wraps the token error, so
// errors.Is(r.Err, ErrTokenExpired) tells the causes apart.
type Rejected struct {
	Status int
	Err    error
}

func (*Authenticated) authResult() {}
func (*Rejected) authResult()      {}

// RequireAuth reads the session cookie from r and verifies it.
func (m *TokenManager) RequireAuth(r *http.Request) AuthResult {
	var token string
	if cookie, err := r.Cookie(CookieName); err == nil {
		token = cookie.Value
	}

	identity, err := m.Verify(token)
	if err != nil {
		return &Rejected{
			Status: http.StatusUnauthorized,
			Err:    &apperr.Error{Kind: apperr.KindUnauthorized, Message: rejectionMessage(err), Err: err},
		}
	}
	return &Authenticated{Identity: identity}
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "Unauthorized: No token provided"
	case errors.Is(err, ErrTokenExpired):
		return "Unauthorized: Token expired"
	default:
		return "Unauthorized: Invalid token"
	}
}

// SetSessionCookie stores token as an httpOnly cookie. The signed expiry in
// the token stays authoritative.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie overwrites the session cookie with an empty, expired one.
// The token itself stays valid until its signed expiry.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
