package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/domain/entity"
	"flatmate/internal/usecase"
	"flatmate/pkg/errors"
	"flatmate/pkg/response"
	"flatmate/pkg/utils"
)

// MessageDeliverer persists a message and fans it out to the live room.
type MessageDeliverer interface {
	Deliver(ctx context.Context, userID, matchID, content string) (*entity.MessageView, error)
}

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	deliverer           MessageDeliverer
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, deliverer MessageDeliverer) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		deliverer:           deliverer,
	}
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *ConversationHandler) GetHistory(c echo.Context) error {
	limit := utils.GetLimitParam(c, usecase.DefaultHistoryLimit, usecase.DefaultHistoryLimit)

	messages, err := h.conversationUseCase.History(c.Request().Context(), c.Param("matchId"), middleware.UserID(c), limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messages)
}

// SendMessage is the REST path for clients without a live connection. The
// message still reaches connections joined to the room.
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	view, err := h.deliverer.Deliver(c.Request().Context(), middleware.UserID(c), c.Param("matchId"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, view)
}

func (h *ConversationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.conversationUseCase.UnreadCount(c.Request().Context(), c.Param("matchId"), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{"count": count})
}
