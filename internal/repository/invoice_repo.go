package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gstbill/internal/model"
)

// InvoiceListFilter narrows List results.
type InvoiceListFilter struct {
	Status        string // ISSUED, CANCELLED or empty for all
	InvoiceNumber string // partial match
	Page          int
	Limit         int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDWithGraph(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	UpdateStatus(ctx context.Context, invoice *model.Invoice) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create persists the invoice together with its items (gorm association create).
func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Items").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithGraph(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Invoice{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InvoiceNumber != "" {
		query = query.Where("invoice_number LIKE ?", "%"+filter.InvoiceNumber+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Customer").Preload("Items").
		Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// UpdateStatus persists a lifecycle change (ISSUED -> CANCELLED). Items and
// totals are immutable; only status fields are written.
func (r *invoiceRepository) UpdateStatus(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Model(invoice).
		Select("status", "cancelled_at", "updated_at").
		Updates(invoice).Error
}
