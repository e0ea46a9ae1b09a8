package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skillsync/internal/auth"
	"skillsync/internal/services"
	"skillsync/internal/telemetry"
)

// AuthHandler serves signup, login, logout and session verification.
type AuthHandler struct {
	responder
	users        *services.UserService
	audit        *telemetry.AuditEmitter
	secureCookie bool
}

func NewAuthHandler(users *services.UserService, audit *telemetry.AuditEmitter, secureCookie bool, logger *zerolog.Logger, development bool) *AuthHandler {
	return &AuthHandler{
		responder:    newResponder(logger, development),
		users:        users,
		audit:        audit,
		secureCookie: secureCookie,
	}
}

type signupRequest struct {
	Name     string `json:"name" binding:"notblank"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !h.bindJSON(c, &req, "Name, email and password are required") {
		return
	}

	user, err := h.users.Signup(c.Request.Context(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"user": gin.H{"id": user.ID, "email": user.Email, "name": user.Name},
	}, "User created successfully")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req, "Email and password are required") {
		return
	}

	ctx := c.Request.Context()
	user, token, expires, err := h.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.audit.Emit(ctx, "WARN", "login failed", requestIDFromContext(c), nil)
		h.fail(c, err)
		return
	}

	id := user.ID
	h.audit.Emit(ctx, "INFO", "login succeeded", requestIDFromContext(c), &id)
	auth.SetSessionCookie(c.Writer, token, expires, h.secureCookie)
	respond(c, http.StatusOK, nil, "Login successful")
}

// Logout only drops the cookie; an issued token stays valid until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c.Writer, h.secureCookie)
	respond(c, http.StatusOK, nil, "Logout successful")
}

// Verify reports the session's user as currently stored.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"user": gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"isOnboarded": user.IsOnboarded,
	}}, "")
}
