package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a registered buyer. Its State drives the intra/inter-state tax
// split on invoices. Invoices may instead carry an ad-hoc display name for
// one-off buyers that never become Customer rows.
type Customer struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	GSTIN     string         `gorm:"type:varchar(20)" json:"gstin"`
	Address   string         `gorm:"type:text" json:"address"`
	City      string         `gorm:"type:varchar(100)" json:"city"`
	State     string         `gorm:"type:varchar(100);not null" json:"state"`
	StateCode string         `gorm:"type:varchar(100)" json:"state_code"`
	Pincode   string         `gorm:"type:varchar(10)" json:"pincode"`
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
