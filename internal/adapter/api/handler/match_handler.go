package handler

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/usecase"
	"flatmate/pkg/response"
)

type MatchHandler struct {
	matchUseCase *usecase.MatchUseCase
}

func NewMatchHandler(matchUseCase *usecase.MatchUseCase) *MatchHandler {
	return &MatchHandler{
		matchUseCase: matchUseCase,
	}
}

func (h *MatchHandler) GetMatches(c echo.Context) error {
	matches, err := h.matchUseCase.FindMatches(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, matches)
}
