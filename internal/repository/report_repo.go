package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gstbill/internal/model"
)

// SalesSummary aggregates issued invoices for a date range.
type SalesSummary struct {
	InvoiceCount int64  `json:"invoice_count"`
	Subtotal     string `json:"subtotal"`
	CGST         string `json:"cgst"`
	SGST         string `json:"sgst"`
	IGST         string `json:"igst"`
	Total        string `json:"total"`
}

type ReportRepository interface {
	GetSalesSummary(ctx context.Context, start, end time.Time) (SalesSummary, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) GetSalesSummary(ctx context.Context, start, end time.Time) (SalesSummary, error) {
	var summary SalesSummary
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select(`COUNT(id) as invoice_count,
			COALESCE(CAST(SUM(subtotal) AS TEXT), '0') as subtotal,
			COALESCE(CAST(SUM(cgst) AS TEXT), '0') as cgst,
			COALESCE(CAST(SUM(sgst) AS TEXT), '0') as sgst,
			COALESCE(CAST(SUM(igst) AS TEXT), '0') as igst,
			COALESCE(CAST(SUM(total) AS TEXT), '0') as total`).
		Where("status = ? AND invoice_date >= ? AND invoice_date <= ?", model.InvoiceStatusIssued, start, end).
		Scan(&summary).Error
	if err != nil {
		return SalesSummary{}, fmt.Errorf("failed to query sales summary: %w", err)
	}
	return summary, nil
}
