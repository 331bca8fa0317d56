package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"chatsync/internal/infrastructure/websocket"
)

type HealthHandler struct {
	backend   string
	wsManager *websocket.Manager
}

func NewHealthHandler(backend string, wsManager *websocket.Manager) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		wsManager: wsManager,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	connections := 0
	if h.wsManager != nil {
		connections = h.wsManager.ConnectionCount()
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "Server is running",
		"backend":     h.backend,
		"connections": connections,
		"time":        time.Now().Format(time.RFC3339),
	})
}
