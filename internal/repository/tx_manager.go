package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
// RunInTx joins a transaction already present in ctx instead of opening a
// nested one, so multi-step services compose into a single atomic unit.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if HasTx(ctx) {
		return fn(ctx)
	}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
	return translateConflict(err)
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// HasTx reports whether ctx already carries an open transaction.
func HasTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey).(*gorm.DB)
	return ok
}

// translateConflict maps storage-level contention errors to apperr.ErrConflict
// so callers can retry the whole issuance. Covers serialization failures and
// deadlocks (SQLSTATE 40001/40P01) plus a unique violation on the invoice
// counter key when concurrent allocators race create-if-missing.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return apperr.ErrConflict
		case "23505":
			if pgErr.ConstraintName == "idx_invoice_counter_key" {
				return apperr.ErrConflict
			}
		}
	}
	return err
}
