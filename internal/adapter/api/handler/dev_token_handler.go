package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"chatsync/internal/infrastructure/firebase"
	"chatsync/internal/usecase"
	"chatsync/pkg/errors"
	"chatsync/pkg/response"
)

// DevTokenHandler hands out dev:<uid> tokens. It is only mounted when the
// server accepts them.
type DevTokenHandler struct {
	authUseCase *usecase.AuthUseCase
}

func NewDevTokenHandler(authUseCase *usecase.AuthUseCase) *DevTokenHandler {
	return &DevTokenHandler{
		authUseCase: authUseCase,
	}
}

// IssueToken registers :uid if needed and returns a token for it.
func (h *DevTokenHandler) IssueToken(c echo.Context) error {
	uid := strings.TrimSpace(c.Param("uid"))
	if uid == "" {
		return response.Error(c, errors.InvalidArgument("uid must not be empty"))
	}

	token := firebase.DevTokenPrefix + uid
	identity, err := h.authUseCase.Authenticate(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.authUseCase.EnsureProfile(c.Request().Context(), identity)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
