package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skillsync/internal/apperr"
	"skillsync/internal/models"
	"skillsync/internal/services"
)

// UserHandler serves profiles, onboarding, search and account extras.
type UserHandler struct {
	responder
	users *services.UserService
}

func NewUserHandler(users *services.UserService, logger *zerolog.Logger, development bool) *UserHandler {
	return &UserHandler{responder: newResponder(logger, development), users: users}
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user}, "")
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req services.ProfileUpdate
	if !h.bindJSON(c, &req, "Invalid profile details") {
		return
	}

	user, err := h.users.Update(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user}, "Profile updated")
}

type onboardingRequest struct {
	OnboardingDetails []models.OnboardingAnswer `json:"onboardingDetails" binding:"required"`
}

func (h *UserHandler) CompleteOnboarding(c *gin.Context) {
	var req onboardingRequest
	if !h.bindJSON(c, &req, "Invalid onboarding details") {
		return
	}

	if err := h.users.CompleteOnboarding(c.Request.Context(), currentUserID(c), req.OnboardingDetails); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Profile updated")
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	filter, err := searchFilterFromQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	users, err := h.users.Search(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"users": users}, "")
}

// searchFilterFromQuery maps query parameters onto a filter. Empty values do
// not filter; booleans are true only for the literal "true".
func searchFilterFromQuery(c *gin.Context) (models.UserSearchFilter, error) {
	str := func(key string) *string {
		if v := c.Query(key); v != "" {
			return &v
		}
		return nil
	}
	flag := func(key string) *bool {
		if v := c.Query(key); v != "" {
			b := v == "true"
			return &b
		}
		return nil
	}

	filter := models.UserSearchFilter{
		Name:         str("name"),
		Email:        str("email"),
		Branch:       str("branch"),
		KnownSkills:  c.QueryArray("known_skills"),
		CareerPath:   c.QueryArray("career_path"),
		Experience:   flag("experience"),
		LearningGoal: str("learning_goal"),
		Availability: str("availability"),
		IsOnboarded:  flag("isOnboarded"),
		IsVerified:   flag("isVerified"),
	}
	if v := c.Query("passing_year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return models.UserSearchFilter{}, apperr.Validation("Invalid passing_year")
		}
		filter.PassingYear = &year
	}
	return filter, nil
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"notblank"`
}

func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !h.bindJSON(c, &req, "Invalid or expired verification token") {
		return
	}

	if err := h.users.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Email verified successfully")
}

type avatarRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

func (h *UserHandler) RequestAvatarUpload(c *gin.Context) {
	var req avatarRequest
	if !h.bindJSON(c, &req, "Content type is required") {
		return
	}

	upload, err := h.users.RequestAvatarUpload(c.Request.Context(), currentUserID(c), c.Param("id"), req.ContentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"upload": upload}, "")
}
