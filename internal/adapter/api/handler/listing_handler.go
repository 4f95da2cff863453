package handler

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/usecase"
	"flatmate/pkg/response"
)

// ListingHandler serves the like endpoints. Listing CRUD belongs to the listing service.
type ListingHandler struct {
	interestUseCase *usecase.InterestUseCase
}

func NewListingHandler(interestUseCase *usecase.InterestUseCase) *ListingHandler {
	return &ListingHandler{
		interestUseCase: interestUseCase,
	}
}

func (h *ListingHandler) ToggleLike(c echo.Context) error {
	result, err := h.interestUseCase.ToggleLike(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

func (h *ListingHandler) LikeStatus(c echo.Context) error {
	result, err := h.interestUseCase.LikeStatus(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}
