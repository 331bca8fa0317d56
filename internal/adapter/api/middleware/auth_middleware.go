package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"chatsync/internal/usecase"
	"chatsync/pkg/logger"
	"chatsync/pkg/response"
)

const (
	ContextKeyUID      = "uid"
	ContextKeyIdentity = "identity"
)

type AuthMiddleware struct {
	authUseCase *usecase.AuthUseCase
}

func NewAuthMiddleware(authUseCase *usecase.AuthUseCase) *AuthMiddleware {
	return &AuthMiddleware{
		authUseCase: authUseCase,
	}
}

// Authenticate accepts "Authorization: Bearer <token>" or, for WebSocket
// upgrades where browsers cannot set headers, a "token" query parameter.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := BearerToken(c)

		identity, err := m.authUseCase.Authenticate(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, err)
		}

		// Profile creation failures never block the request.
		if _, err := m.authUseCase.EnsureProfile(c.Request().Context(), identity); err != nil {
			logger.Warn("Auth: Failed to ensure profile for %s: %v", identity.UID, err)
		}

		c.Set(ContextKeyUID, identity.UID)
		c.Set(ContextKeyIdentity, identity)
		return next(c)
	}
}

func BearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return c.QueryParam("token")
}

// UID returns the authenticated user id set by Authenticate.
func UID(c echo.Context) string {
	uid, _ := c.Get(ContextKeyUID).(string)
	return uid
}
