package handlers

import "github.com/gin-gonic/gin"

// API groups the JSON handlers mounted under /api.
type API struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Connections *ConnectionHandler
	Messages    *MessageHandler
}

// Register mounts every API route. requireSession guards everything except
// signup, login and logout.
func (a API) Register(api *gin.RouterGroup, requireSession gin.HandlerFunc) {
	RegisterValidators()

	api.POST("/users/signup", a.Auth.Signup)
	api.POST("/users/login", a.Auth.Login)
	api.POST("/users/verify-email", a.Users.VerifyEmail)
	api.POST("/auth/logout", a.Auth.Logout)

	authed := api.Group("", requireSession)
	authed.GET("/auth/verify", a.Auth.Verify)

	authed.POST("/users/onboarding", a.Users.CompleteOnboarding)
	authed.GET("/users/search", a.Users.SearchUsers)
	authed.GET("/users/:id", a.Users.GetUser)
	authed.PUT("/users/:id", a.Users.UpdateUser)
	authed.POST("/users/:id/avatar", a.Users.RequestAvatarUpload)

	authed.GET("/connections", a.Connections.ListConnections)
	authed.POST("/connections", a.Connections.RequestConnection)
	authed.GET("/connections/status", a.Connections.ConnectionStatus)
	authed.PATCH("/connections/:id", a.Connections.RespondToConnection)
	authed.DELETE("/connections/:id", a.Connections.RemoveConnection)

	authed.GET("/messages", a.Messages.GetConversation)
	authed.POST("/messages", a.Messages.SendMessage)
	authed.GET("/messages/conversations", a.Messages.ListConversations)
}
