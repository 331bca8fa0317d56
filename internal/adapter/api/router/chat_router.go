package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
	"chatsync/internal/infrastructure/ratelimit"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	chatHandler := handler.GetChatHandler()

	v1 := e.Group("/v1")
	v1.Use(authMiddleware.Authenticate)

	v1.GET("/chats", chatHandler.GetChats)
	v1.GET("/threads", chatHandler.GetThreads)

	chats := v1.Group("/chats/:counterpartId")
	chats.GET("/messages", chatHandler.GetMessages)
	chats.POST("/messages", chatHandler.SendMessage, rateLimitMiddleware.Limit(ratelimit.ActionSendMessage))
	chats.PUT("/read", chatHandler.MarkRead, rateLimitMiddleware.Limit(ratelimit.ActionMarkRead))
}
