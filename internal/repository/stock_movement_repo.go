package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gstbill/internal/model"
)

// StockMovementRepository appends and reads the immutable movement ledger.
// There is intentionally no update or delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	List(ctx context.Context, page, limit int) ([]model.StockMovement, int64, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockMovementRepository) List(ctx context.Context, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Preload("Product").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	if err := GetDB(ctx, r.db).
		Where("product_id = ?", productID).
		Order("created_at desc").Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
