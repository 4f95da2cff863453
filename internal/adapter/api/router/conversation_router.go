package router

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/handler"
	"flatmate/internal/adapter/api/middleware"
)

func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware) {
	conversationGroup := e.Group("/v1/conversation")
	conversationGroup.Use(authMiddleware.Authenticate)

	conversationGroup.GET("/:matchId", conversationHandler.GetHistory)            // GET /v1/conversation/:matchId - History, marks read
	conversationGroup.POST("/:matchId", conversationHandler.SendMessage)          // POST /v1/conversation/:matchId - Send without a live connection
	conversationGroup.GET("/:matchId/unread", conversationHandler.GetUnreadCount) // GET /v1/conversation/:matchId/unread
}
