package service

import (
	"context"
	"fmt"
	"time"

	"gstbill/internal/apperr"
	"gstbill/internal/repository"
)

type SalesSummaryResponse struct {
	From         string `json:"from"`
	To           string `json:"to"`
	InvoiceCount int64  `json:"invoice_count"`
	Subtotal     string `json:"subtotal"`
	CGST         string `json:"cgst"`
	SGST         string `json:"sgst"`
	IGST         string `json:"igst"`
	Total        string `json:"total"`
}

// ReportService provides JSON aggregates for the dashboard; rendering
// (PDF, exports) is out of scope.
type ReportService interface {
	GetSalesSummary(ctx context.Context, from, to time.Time) (SalesSummaryResponse, error)
	GetLowStockProducts(ctx context.Context) ([]ProductResponse, error)
}

type reportService struct {
	reportRepo  repository.ReportRepository
	productRepo repository.ProductRepository
}

func NewReportService(reportRepo repository.ReportRepository, productRepo repository.ProductRepository) ReportService {
	return &reportService{reportRepo: reportRepo, productRepo: productRepo}
}

func (s *reportService) GetSalesSummary(ctx context.Context, from, to time.Time) (SalesSummaryResponse, error) {
	if to.Before(from) {
		return SalesSummaryResponse{}, apperr.Validation("to", "must not be before from")
	}

	summary, err := s.reportRepo.GetSalesSummary(ctx, from, to)
	if err != nil {
		return SalesSummaryResponse{}, fmt.Errorf("failed to build sales summary: %w", err)
	}

	return SalesSummaryResponse{
		From:         from.Format("2006-01-02"),
		To:           to.Format("2006-01-02"),
		InvoiceCount: summary.InvoiceCount,
		Subtotal:     summary.Subtotal,
		CGST:         summary.CGST,
		SGST:         summary.SGST,
		IGST:         summary.IGST,
		Total:        summary.Total,
	}, nil
}

func (s *reportService) GetLowStockProducts(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.ListBelowMinStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low-stock products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, nil
}
