package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo) {
	devTokenHandler := handler.GetDevTokenHandler()
	if devTokenHandler == nil {
		return
	}

	e.GET("/_dev/token/:uid", devTokenHandler.IssueToken)
}
