package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gstbill/internal/model"
)

// CompanyRepository accesses the single seller profile row.
type CompanyRepository interface {
	Get(ctx context.Context) (*model.Company, error)
	Upsert(ctx context.Context, company *model.Company) error
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Get(ctx context.Context) (*model.Company, error) {
	var company model.Company
	if err := GetDB(ctx, r.db).Order("created_at asc").First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) Upsert(ctx context.Context, company *model.Company) error {
	db := GetDB(ctx, r.db)

	var existing model.Company
	err := db.Order("created_at asc").First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(company).Error
	}
	if err != nil {
		return err
	}

	company.ID = existing.ID
	company.CreatedAt = existing.CreatedAt
	return db.Save(company).Error
}
