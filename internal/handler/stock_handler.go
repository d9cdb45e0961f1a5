package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gstbill/internal/apperr"
	"gstbill/internal/middleware"
	"gstbill/internal/service"
	"gstbill/pkg/pagination"
	"gstbill/pkg/response"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	stock := router.Group("/api/stock-movements", middleware.RequireAuth())
	{
		stock.POST("", h.CreateMovement)
		stock.GET("", h.ListMovements)
	}
}

// CreateMovement records a stock movement and adjusts product stock
// @Summary      Record stock movement
// @Description  Appends an immutable movement (IN, OUT or ADJUSTMENT) and updates the product's stock atomically; rejected when the resulting stock would be negative
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MovementRequest  true  "Stock Movement Payload"
// @Success      201      {object}  response.Response{data=service.MovementResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/stock-movements [post]
func (h *StockHandler) CreateMovement(c *gin.Context) {
	var req service.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	movement, err := h.stockService.ApplyMovement(c.Request.Context(), req)
	if err != nil {
		// On this boundary a would-be-negative stock is a caller mistake,
		// not a conflict.
		if apperr.IsInsufficientStock(err) {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movement))
}

// ListMovements returns the movement ledger, newest first
// @Summary      List stock movements
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/stock-movements [get]
func (h *StockHandler) ListMovements(c *gin.Context) {
	params := pagination.Parse(c)

	movements, total, err := h.stockService.ListMovements(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
