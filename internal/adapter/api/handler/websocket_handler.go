package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/middleware"
	ws "flatmate/internal/infrastructure/websocket"
	"flatmate/pkg/logger"
	"flatmate/pkg/response"
)

// authProtocolPrefix lets browsers, which cannot set headers on a websocket
// handshake, pass the token as a sub-protocol: "auth.<token>".
const authProtocolPrefix = "auth."

type WebSocketHandler struct {
	wsManager      *ws.Manager
	authMiddleware *middleware.AuthMiddleware
	upgrader       gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, authMiddleware *middleware.AuthMiddleware, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		authMiddleware: authMiddleware,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket verifies the credential before upgrading; a bad credential
// gets a plain 401 and no connection.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token, protocol := handshakeToken(c.Request())

	userID, err := h.authMiddleware.VerifyToken(c.Request(), token)
	if err != nil {
		return response.Error(c, err)
	}

	var header http.Header
	if protocol != "" {
		header = http.Header{"Sec-Websocket-Protocol": []string{protocol}}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), header)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warn("WebSocket: upgrade failed for %s: %v", userID, err)
		return nil
	}

	h.wsManager.Attach(userID, conn)
	return nil
}

// handshakeToken looks for the credential in the token query parameter, the
// Authorization header, then the auth sub-protocol, which is echoed back.
func handshakeToken(r *http.Request) (token, protocol string) {
	if t := r.URL.Query().Get("token"); t != "" {
		return t, ""
	}
	if t, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		return t, ""
	}
	for _, p := range gorillaws.Subprotocols(r) {
		if strings.HasPrefix(p, authProtocolPrefix) {
			return strings.TrimPrefix(p, authProtocolPrefix), p
		}
	}
	return "", ""
}

