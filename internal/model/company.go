package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultInvoicePrefix is used when the company profile does not set one.
const DefaultInvoicePrefix = "INV"

// Company holds the seller's own profile. Exactly one row is expected; its
// state determines intra- vs inter-state tax treatment and its prefix feeds
// invoice numbering.
type Company struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	GSTIN         string    `gorm:"type:varchar(20)" json:"gstin"`
	Address       string    `gorm:"type:text" json:"address"`
	City          string    `gorm:"type:varchar(100)" json:"city"`
	State         string    `gorm:"type:varchar(100);not null" json:"state"`
	Pincode       string    `gorm:"type:varchar(10)" json:"pincode"`
	Phone         string    `gorm:"type:varchar(50)" json:"phone"`
	Email         string    `gorm:"type:varchar(255)" json:"email"`
	BankName      string    `gorm:"type:varchar(255)" json:"bank_name"`
	BankAccount   string    `gorm:"type:varchar(100)" json:"bank_account"`
	BankIFSC      string    `gorm:"type:varchar(20)" json:"bank_ifsc"`
	InvoicePrefix string    `gorm:"type:varchar(10);not null;default:'INV'" json:"invoice_prefix"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.InvoicePrefix == "" {
		c.InvoicePrefix = DefaultInvoicePrefix
	}
	return nil
}
