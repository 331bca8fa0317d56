package handler

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/middleware"
	"chatsync/internal/usecase"
	"chatsync/pkg/response"
	"chatsync/pkg/utils"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type updateProfileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

func (h *UserHandler) ListContacts(c echo.Context) error {
	uid := middleware.UID(c)

	contacts, err := h.userUseCase.ListContacts(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	page := utils.GetPaginationParams(c)
	return response.List(c, utils.Paginate(contacts, page), len(contacts))
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userUseCase.GetProfile(c.Request().Context(), middleware.UID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userUseCase.GetProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.RegisterProfile(c.Request().Context(), middleware.UID(c), usecase.RegisterProfileInput{
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
