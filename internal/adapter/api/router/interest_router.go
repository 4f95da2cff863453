package router

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/handler"
	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/infrastructure/ratelimit"
)

func SetupInterestRouter(e *echo.Echo, interestHandler *handler.InterestHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	interestGroup := e.Group("/v1/interest")
	interestGroup.Use(authMiddleware.Authenticate)

	interestGroup.POST("", interestHandler.ExpressInterest, middleware.RateLimit(limiter, ratelimit.ActionInterest)) // POST /v1/interest - Send a request for a listing
	interestGroup.GET("/incoming", interestHandler.ListIncoming)                                                      // GET /v1/interest/incoming - Requests received
	interestGroup.GET("/sent", interestHandler.ListSent)                                                              // GET /v1/interest/sent - Requests sent
	interestGroup.GET("/counts", interestHandler.GetCounts)                                                           // GET /v1/interest/counts - Pending incoming count
	interestGroup.GET("/status/:listingId", interestHandler.StatusForListing)                                         // GET /v1/interest/status/:listingId - Did I request this listing
	interestGroup.GET("/:id", interestHandler.GetInterest)                                                            // GET /v1/interest/:id - Request detail
	interestGroup.POST("/:id/status", interestHandler.SetStatus)                                                      // POST /v1/interest/:id/status - Accept or reject
}
