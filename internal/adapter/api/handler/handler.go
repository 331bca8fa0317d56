package handler

import (
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/internal/infrastructure/websocket"
	"chatsync/internal/usecase"
)

var (
	userHandler      *UserHandler
	chatHandler      *ChatHandler
	healthHandler    *HealthHandler
	websocketHandler *WebSocketHandler
	devTokenHandler  *DevTokenHandler
)

// Dependencies is everything the HTTP and WebSocket handlers need.
type Dependencies struct {
	UserUseCase      *usecase.UserUseCase
	AuthUseCase      *usecase.AuthUseCase
	MessageStore     *usecase.MessageStore
	MessageStream    *usecase.MessageStream
	ThreadAggregator *usecase.ThreadAggregator
	RateLimiter      *ratelimit.RateLimiter
	WSManager        *websocket.Manager
	Backend          string

	// DevTokens mounts the dev token endpoint.
	DevTokens bool
}

func Setup(deps Dependencies) {
	userHandler = NewUserHandler(deps.UserUseCase)
	chatHandler = NewChatHandler(deps.MessageStore, deps.MessageStream, deps.ThreadAggregator)
	healthHandler = NewHealthHandler(deps.Backend, deps.WSManager)
	websocketHandler = NewWebSocketHandler(deps.WSManager, deps.UserUseCase, deps.MessageStore, deps.MessageStream, deps.ThreadAggregator, deps.RateLimiter)

	devTokenHandler = nil
	if deps.DevTokens {
		devTokenHandler = NewDevTokenHandler(deps.AuthUseCase)
	}
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return websocketHandler
}

// GetDevTokenHandler is nil unless dev tokens are enabled.
func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}
