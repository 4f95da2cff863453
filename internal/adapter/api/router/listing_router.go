package router

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/handler"
	"flatmate/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	listingGroup := e.Group("/v1/listing")
	listingGroup.Use(authMiddleware.Authenticate)

	listingGroup.POST("/:id/like", listingHandler.ToggleLike)        // POST /v1/listing/:id/like - Like or unlike
	listingGroup.GET("/:id/like-status", listingHandler.LikeStatus) // GET /v1/listing/:id/like-status
}
