package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gstbill/internal/model"
)

// SequenceRepository issues gap-free, strictly increasing invoice numbers per
// (year, prefix). Next must run inside the transaction that persists the
// dependent invoice: the increment then commits or rolls back with it.
type SequenceRepository interface {
	Next(ctx context.Context, year int, prefix string) (int64, error)
	Current(ctx context.Context, year int, prefix string) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// Next increments and returns the counter for (year, prefix), creating the row
// at zero on first use. The increment is a single storage-level
// last_number = last_number + 1 so concurrent allocators serialize on the row;
// the unique (year, prefix) index turns a raced first-use insert into a
// conflict the transaction manager surfaces as retryable.
func (r *sequenceRepository) Next(ctx context.Context, year int, prefix string) (int64, error) {
	db := GetDB(ctx, r.db)

	counter := model.InvoiceCounter{Year: year, Prefix: prefix}
	if err := db.Where("year = ? AND prefix = ?", year, prefix).
		FirstOrCreate(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to load invoice counter: %w", err)
	}

	if err := db.Model(&model.InvoiceCounter{}).
		Where("year = ? AND prefix = ?", year, prefix).
		UpdateColumn("last_number", gorm.Expr("last_number + 1")).Error; err != nil {
		return 0, fmt.Errorf("failed to increment invoice counter: %w", err)
	}

	// Re-read inside the same transaction; sees our own increment.
	if err := db.Where("year = ? AND prefix = ?", year, prefix).
		First(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to read invoice counter: %w", err)
	}

	return counter.LastNumber, nil
}

func (r *sequenceRepository) Current(ctx context.Context, year int, prefix string) (int64, error) {
	var counter model.InvoiceCounter
	err := GetDB(ctx, r.db).Where("year = ? AND prefix = ?", year, prefix).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.LastNumber, nil
}
