package router

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/handler"
	"flatmate/internal/adapter/api/middleware"
)

func SetupMatchRouter(e *echo.Echo, matchHandler *handler.MatchHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/v1/matches", matchHandler.GetMatches, authMiddleware.Authenticate)
}
