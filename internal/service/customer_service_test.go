package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/model"
	"gstbill/internal/repository"
)

func newCustomerService(t *testing.T) (CustomerService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewCustomerService(
		repository.NewCustomerRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
	return svc, db
}

func TestCreateCustomer_StateCodeFromGSTIN(t *testing.T) {
	svc, db := newCustomerService(t)

	resp, err := svc.CreateCustomer(context.Background(), "tester", CustomerRequest{
		Name:    "Mumbai Retail",
		GSTIN:   "27AAPFU0939F1ZV",
		Address: "1 Marine Drive",
		City:    "Mumbai",
		State:   "MH", // free text loses to the GSTIN registration
		Pincode: "400001",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maharashtra", resp.StateCode)
	assert.Equal(t, "MH", resp.State)

	var audit model.AuditLog
	require.NoError(t, db.Where("action = ?", model.ActionCreateCustomer).First(&audit).Error)
	assert.Equal(t, "Mumbai Retail", audit.EntityName)
}

func TestCreateCustomer_StateCodeFallsBackToState(t *testing.T) {
	svc, _ := newCustomerService(t)

	resp, err := svc.CreateCustomer(context.Background(), "tester", CustomerRequest{
		Name:    "Unregistered buyer",
		Address: "2 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
	})
	require.NoError(t, err)
	assert.Equal(t, "Karnataka", resp.StateCode)
}

func TestUpdateCustomer_NotFound(t *testing.T) {
	svc, _ := newCustomerService(t)

	_, err := svc.UpdateCustomer(context.Background(), "tester",
		"33333333-3333-3333-3333-333333333333", CustomerRequest{
			Name:    "Ghost",
			Address: "nowhere",
			City:    "nowhere",
			State:   "Delhi",
			Pincode: "110001",
		})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteCustomer_SoftDeletes(t *testing.T) {
	svc, db := newCustomerService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, "tester", CustomerRequest{
		Name:    "Soon Gone",
		Address: "3 Park Street",
		City:    "Kolkata",
		State:   "West Bengal",
		Pincode: "700016",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCustomer(ctx, "tester", created.ID))

	_, err = svc.GetCustomer(ctx, created.ID)
	assert.True(t, apperr.IsNotFound(err))

	// Soft delete: the row survives for invoices that reference it.
	var count int64
	require.NoError(t, db.Unscoped().Model(&model.Customer{}).
		Where("id = ?", created.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
