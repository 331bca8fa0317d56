package router

import (
	"chatsync/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	SetupHealthRouter(e)
	SetupUserRouter(e, authMiddleware)
	SetupChatRouter(e, authMiddleware, rateLimitMiddleware)
	SetupWebSocketRouter(e, authMiddleware)
	SetupDevRouter(e)
}
