package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementType enum constants
const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJUSTMENT"
)

// Product represents a catalog item with its current on-hand stock.
// Stock never goes below zero at any committed state; it is kept consistent
// with the StockMovement ledger by the same transaction that appends a movement.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	HSN         string          `gorm:"type:varchar(20)" json:"hsn"`
	Unit        string          `gorm:"type:varchar(20);not null;default:'PCS'" json:"unit"`
	Category    string          `gorm:"type:varchar(100);default:'General'" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"tax_rate"` // percent, 0-100
	Stock       int             `gorm:"type:int;not null;default:0" json:"stock"`
	MinStock    int             `gorm:"type:int;not null;default:0" json:"min_stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StockMovement is an append-only ledger entry for one stock change. Quantity
// is the signed delta actually applied (negative for OUT), StockAfter the
// resulting stock. Rows are never updated or deleted.
type StockMovement struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Type       string    `gorm:"type:varchar(15);not null" json:"type"` // IN, OUT, ADJUSTMENT
	Quantity   int       `gorm:"type:int;not null" json:"quantity"`
	StockAfter int       `gorm:"type:int;not null" json:"stock_after"`
	Reference  string    `gorm:"type:varchar(100);index" json:"reference"` // e.g. invoice number
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
