package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/handler"
	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, handlers *handler.Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, metricsHandler http.Handler) {
	SetupInterestRouter(e, handlers.Interest, authMiddleware, limiter)
	SetupListingRouter(e, handlers.Listing, authMiddleware)
	SetupMatchRouter(e, handlers.Match, authMiddleware)
	SetupConversationRouter(e, handlers.Conversation, authMiddleware)
	SetupWebSocketRouter(e, handlers.WebSocket)
	SetupHealthRouter(e, handlers.Health, metricsHandler)
}
