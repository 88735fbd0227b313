package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ippgi/ippgi-prices/internal/application/pricing"
	"github.com/ippgi/ippgi-prices/internal/domain/price"
	"github.com/ippgi/ippgi-prices/internal/shared/errors"
	"github.com/ippgi/ippgi-prices/internal/shared/logger"
	"github.com/ippgi/ippgi-prices/internal/shared/utils"
)

// PriceService is the read side of the pricing application service.
type PriceService interface {
	FetchPriceList(ctx context.Context, force bool) (*price.PriceList, error)
	CategoryPrices(ctx context.Context, productType string) (*price.CategoryPrices, error)
	FetchRealtimePrice(ctx context.Context, req pricing.RealtimeRequest) (*price.RealtimeQuote, error)
	History(ctx context.Context, req pricing.HistoryRequest) (*pricing.History, error)
}

type PriceHandler struct {
	service PriceService
	logger  logger.Interface
}

func NewPriceHandler(service PriceService, logger logger.Interface) *PriceHandler {
	return &PriceHandler{
		service: service,
		logger:  logger,
	}
}

// ListPrices handles GET /api/v1/prices
func (h *PriceHandler) ListPrices(c *gin.Context) {
	list, err := h.service.FetchPriceList(c.Request.Context(), false)
	if err != nil {
		h.logger.Errorw("failed to fetch price list", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", list)
}

// GetCategory handles GET /api/v1/prices/categories/:category
func (h *PriceHandler) GetCategory(c *gin.Context) {
	category := c.Param("category")

	cat, err := h.service.CategoryPrices(c.Request.Context(), category)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", cat)
}

// GetRealtime handles GET /api/v1/prices/realtime
func (h *PriceHandler) GetRealtime(c *gin.Context) {
	var req pricing.RealtimeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	quote, err := h.service.FetchRealtimePrice(c.Request.Context(), req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", quote)
}

// GetHistory handles GET /api/v1/prices/history
func (h *PriceHandler) GetHistory(c *gin.Context) {
	var req pricing.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid query parameters", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	history, err := h.service.History(c.Request.Context(), req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", history)
}
