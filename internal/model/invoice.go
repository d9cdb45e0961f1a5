package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus enum constants. DRAFT exists only in memory during assembly;
// an invoice is persisted as ISSUED and may later be CANCELLED, never edited.
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusIssued    = "ISSUED"
	InvoiceStatusCancelled = "CANCELLED"
)

// Invoice is a tax invoice. Once ISSUED its items and totals are immutable;
// corrections require cancellation or a fresh invoice.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"` // ad-hoc buyer display name
	CustomerState string          `gorm:"type:varchar(100);not null" json:"customer_state"`
	InvoiceDate   time.Time       `gorm:"not null" json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"` // after invoice-level discount
	Discount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	CGST          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cgst"`
	SGST          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"sgst"`
	IGST          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"igst"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	Status        string          `gorm:"type:varchar(20);not null;default:'ISSUED';index" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceItem is one line of an invoice. Rate and TaxRate are snapshots taken
// at issue time; Amount includes the line's tax.
type InvoiceItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rate"`
	Discount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"tax_rate"`
	CGST      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cgst"`
	SGST      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"sgst"`
	IGST      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"igst"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceCounter holds the last-issued sequential number per (year, prefix).
// It is mutated exactly once per issued invoice, inside the same transaction
// that persists the invoice, so an aborted issuance leaves no gap.
type InvoiceCounter struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Year       int       `gorm:"not null;uniqueIndex:idx_invoice_counter_key" json:"year"`
	Prefix     string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_invoice_counter_key" json:"prefix"`
	LastNumber int64     `gorm:"not null;default:0" json:"last_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *InvoiceCounter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
