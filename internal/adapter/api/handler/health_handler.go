package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ConnectionCounter reports open live connections.
type ConnectionCounter interface {
	ClientCount() int
}

type HealthHandler struct {
	connections ConnectionCounter
}

func NewHealthHandler(connections ConnectionCounter) *HealthHandler {
	return &HealthHandler{
		connections: connections,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
	}
	if h.connections != nil {
		body["connections"] = h.connections.ClientCount()
	}
	return c.JSON(http.StatusOK, body)
}
