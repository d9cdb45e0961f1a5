package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gstbill/internal/middleware"
	"gstbill/internal/service"
	"gstbill/pkg/response"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports", middleware.RequireAuth())
	{
		reports.GET("/sales", h.GetSalesSummary)
		reports.GET("/low-stock", h.GetLowStockProducts)
	}
}

// GetSalesSummary aggregates issued invoices over a date range
// @Summary      Sales summary
// @Description  Returns totals for issued invoices between from and to (inclusive)
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "Start date (YYYY-MM-DD, defaults to first day of current month)"
// @Param        to    query     string  false  "End date (YYYY-MM-DD, defaults to today)"
// @Success      200   {object}  response.Response{data=service.SalesSummaryResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/reports/sales [get]
func (h *ReportHandler) GetSalesSummary(c *gin.Context) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD"))
			return
		}
		// Include the whole end day.
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	summary, err := h.reportService.GetSalesSummary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetLowStockProducts lists products at or below their minimum stock level
// @Summary      Low stock products
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/reports/low-stock [get]
func (h *ReportHandler) GetLowStockProducts(c *gin.Context) {
	products, err := h.reportService.GetLowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}
