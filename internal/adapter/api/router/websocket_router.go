package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
)

// SetupWebSocketRouter sets up WebSocket routes. Browsers pass the token as ?token=.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()

	e.GET("/ws", wsHandler.HandleChat, authMiddleware.Authenticate)
	e.GET("/ws/threads", wsHandler.HandleThreads, authMiddleware.Authenticate)
}
