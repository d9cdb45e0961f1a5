package database

import (
	"gstbill/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate applies the schema for all core models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Company{},
		&model.Customer{},
		&model.Product{},
		&model.StockMovement{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.InvoiceCounter{},
		&model.AuditLog{},
	)
}
