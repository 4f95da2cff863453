package handler

import (
	"flatmate/internal/adapter/api/middleware"
	ws "flatmate/internal/infrastructure/websocket"
	"flatmate/internal/usecase"
)

// Handlers bundles every HTTP handler the routers mount.
type Handlers struct {
	Interest     *InterestHandler
	Listing      *ListingHandler
	Match        *MatchHandler
	Conversation *ConversationHandler
	WebSocket    *WebSocketHandler
	Health       *HealthHandler
}

func Setup(
	interestUseCase *usecase.InterestUseCase,
	matchUseCase *usecase.MatchUseCase,
	conversationUseCase *usecase.ConversationUseCase,
	wsManager *ws.Manager,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
) *Handlers {
	return &Handlers{
		Interest:     NewInterestHandler(interestUseCase),
		Listing:      NewListingHandler(interestUseCase),
		Match:        NewMatchHandler(matchUseCase),
		Conversation: NewConversationHandler(conversationUseCase, wsManager),
		WebSocket:    NewWebSocketHandler(wsManager, authMiddleware, allowedOrigins),
		Health:       NewHealthHandler(wsManager),
	}
}
