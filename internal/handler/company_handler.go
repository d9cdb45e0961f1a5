package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gstbill/internal/middleware"
	"gstbill/internal/service"
	"gstbill/pkg/response"
)

type CompanyHandler struct {
	companyService service.CompanyService
}

func NewCompanyHandler(companyService service.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService}
}

func (h *CompanyHandler) RegisterRoutes(router *gin.RouterGroup) {
	company := router.Group("/api/company", middleware.RequireAuth())
	{
		company.GET("", h.GetCompany)
		company.PUT("", h.SaveCompany)
	}
}

// GetCompany returns the seller company profile
// @Summary      Get company profile
// @Tags         company
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.CompanyResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/company [get]
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	company, err := h.companyService.GetCompany(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}

// SaveCompany creates or replaces the seller company profile
// @Summary      Save company profile
// @Description  Upserts the single seller profile used on all invoices
// @Tags         company
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CompanyRequest  true  "Company Payload"
// @Success      200      {object}  response.Response{data=service.CompanyResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/company [put]
func (h *CompanyHandler) SaveCompany(c *gin.Context) {
	var req service.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	company, err := h.companyService.SaveCompany(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}
