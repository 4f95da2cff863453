package router

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts /ws without the auth middleware; the handler
// authenticates the handshake itself.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
