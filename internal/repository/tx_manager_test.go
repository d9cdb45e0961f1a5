package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstbill/internal/apperr"
)

func TestTranslateConflict(t *testing.T) {
	assert.NoError(t, translateConflict(nil))

	err := translateConflict(&pgconn.PgError{Code: "40001"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "serialization failure must be retryable")

	err = translateConflict(&pgconn.PgError{Code: "40P01"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "deadlock must be retryable")

	err = translateConflict(&pgconn.PgError{Code: "23505", ConstraintName: "idx_invoice_counter_key"})
	assert.ErrorIs(t, err, apperr.ErrConflict, "raced counter first-use insert must be retryable")
}

func TestTranslateConflict_UnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("failed to increment invoice counter: %w",
		&pgconn.PgError{Code: "40001"})
	assert.ErrorIs(t, translateConflict(wrapped), apperr.ErrConflict)
}

func TestTranslateConflict_PassesThroughOtherErrors(t *testing.T) {
	// A unique violation elsewhere (e.g. a duplicate SKU) is a caller problem,
	// not a retryable conflict.
	skuErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_products_sku"}
	got := translateConflict(skuErr)
	require.NotErrorIs(t, got, apperr.ErrConflict)
	assert.Equal(t, skuErr, got)

	plain := fmt.Errorf("connection reset")
	assert.Equal(t, plain, translateConflict(plain))
}
