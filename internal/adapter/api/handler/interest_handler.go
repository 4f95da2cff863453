package handler

import (
	"github.com/labstack/echo/v4"

	"flatmate/internal/adapter/api/middleware"
	"flatmate/internal/usecase"
	"flatmate/pkg/errors"
	"flatmate/pkg/response"
)

type InterestHandler struct {
	interestUseCase *usecase.InterestUseCase
}

func NewInterestHandler(interestUseCase *usecase.InterestUseCase) *InterestHandler {
	return &InterestHandler{
		interestUseCase: interestUseCase,
	}
}

type expressInterestRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

func (h *InterestHandler) ExpressInterest(c echo.Context) error {
	var req expressInterestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.interestUseCase.ExpressInterest(c.Request().Context(), middleware.UserID(c), req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, result)
}

func (h *InterestHandler) ListIncoming(c echo.Context) error {
	items, err := h.interestUseCase.ListIncoming(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, items)
}

func (h *InterestHandler) ListSent(c echo.Context) error {
	items, err := h.interestUseCase.ListSent(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, items)
}

func (h *InterestHandler) GetCounts(c echo.Context) error {
	count, err := h.interestUseCase.PendingCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{"pending_incoming": count})
}

func (h *InterestHandler) StatusForListing(c echo.Context) error {
	listingID := c.Param("listingId")
	if listingID == "" {
		return response.Error(c, errors.BadRequest("Listing ID is required", nil))
	}

	status, err := h.interestUseCase.StatusForListing(c.Request().Context(), middleware.UserID(c), listingID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, status)
}

func (h *InterestHandler) GetInterest(c echo.Context) error {
	view, err := h.interestUseCase.Get(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, view)
}

func (h *InterestHandler) SetStatus(c echo.Context) error {
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	view, err := h.interestUseCase.SetStatus(c.Request().Context(), c.Param("id"), middleware.UserID(c), req.Status)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, view)
}
