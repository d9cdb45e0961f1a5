package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/model"
	"gstbill/internal/repository"
)

type invoiceTestEnv struct {
	db           *gorm.DB
	invoiceSvc   InvoiceService
	sequenceRepo repository.SequenceRepository
}

func newInvoiceTestEnv(t *testing.T) *invoiceTestEnv {
	t.Helper()
	db := newTestDB(t)

	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	stockSvc := NewStockService(productRepo, repository.NewStockMovementRepository(db), txManager, nil)
	sequenceRepo := repository.NewSequenceRepository(db)

	invoiceSvc := NewInvoiceService(
		repository.NewInvoiceRepository(db),
		repository.NewCustomerRepository(db),
		productRepo,
		repository.NewCompanyRepository(db),
		sequenceRepo,
		repository.NewAuditRepository(db),
		stockSvc,
		txManager,
		nil,
	)

	require.NoError(t, db.Create(&model.Company{
		Name:          "Acme Traders",
		GSTIN:         "07AABCU9603R1ZX",
		State:         "Delhi",
		InvoicePrefix: "INV",
	}).Error)

	return &invoiceTestEnv{db: db, invoiceSvc: invoiceSvc, sequenceRepo: sequenceRepo}
}

func (e *invoiceTestEnv) createCustomer(t *testing.T, name, state string) *model.Customer {
	t.Helper()
	customer := &model.Customer{Name: name, State: state}
	require.NoError(t, e.db.Create(customer).Error)
	return customer
}

func fixedDate(year int) *time.Time {
	d := time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV/25-26/000001", FormatInvoiceNumber("INV", 2025, 1))
	assert.Equal(t, "INV/25-26/000042", FormatInvoiceNumber("INV", 2025, 42))
	assert.Equal(t, "CRN/99-00/123456", FormatInvoiceNumber("CRN", 1999, 123456))
	assert.Equal(t, "INV/26-27/999999", FormatInvoiceNumber("INV", 2026, 999999))
}

func TestIssueInvoice_IntraState(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-001", 10)

	resp, err := env.invoiceSvc.IssueInvoice(context.Background(), "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 3, Rate: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV/25-26/000001", resp.InvoiceNumber)
	assert.Equal(t, model.InvoiceStatusIssued, resp.Status)
	assert.Equal(t, "Walk-in buyer", resp.CustomerName)
	assert.Equal(t, "Delhi", resp.CustomerState)
	assert.Equal(t, "300.00", resp.Subtotal)
	assert.Equal(t, "27.00", resp.CGST)
	assert.Equal(t, "27.00", resp.SGST)
	assert.Equal(t, "0.00", resp.IGST)
	assert.Equal(t, "354.00", resp.Total)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, "WID-001", resp.Items[0].ProductSKU)
	assert.Equal(t, "354.00", resp.Items[0].Amount)

	// Stock went through the ledger: 10 -> 7 with an OUT movement referencing
	// the invoice number.
	var stored model.Product
	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 7, stored.Stock)

	var movement model.StockMovement
	require.NoError(t, env.db.Where("product_id = ?", product.ID).First(&movement).Error)
	assert.Equal(t, model.MovementOut, movement.Type)
	assert.Equal(t, -3, movement.Quantity)
	assert.Equal(t, 7, movement.StockAfter)
	assert.Equal(t, resp.InvoiceNumber, movement.Reference)

	var audit model.AuditLog
	require.NoError(t, env.db.Where("action = ?", model.ActionIssueInvoice).First(&audit).Error)
	assert.Equal(t, "tester", audit.Actor)
	assert.Equal(t, resp.InvoiceNumber, audit.EntityName)
}

func TestIssueInvoice_InterState(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-002", 10)
	customer := env.createCustomer(t, "Mumbai Retail", "Maharashtra")

	resp, err := env.invoiceSvc.IssueInvoice(context.Background(), "tester", IssueInvoiceRequest{
		CustomerID:  customer.ID.String(),
		InvoiceDate: fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 3, Rate: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Maharashtra", resp.CustomerState)
	assert.Equal(t, "Mumbai Retail", resp.CustomerName)
	assert.Equal(t, "0.00", resp.CGST)
	assert.Equal(t, "0.00", resp.SGST)
	assert.Equal(t, "54.00", resp.IGST)
	assert.Equal(t, "354.00", resp.Total)
}

func TestIssueInvoice_SequentialNumbers(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-003", 100)
	ctx := context.Background()

	for i, want := range []string{"INV/25-26/000001", "INV/25-26/000002", "INV/25-26/000003"} {
		resp, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
			CustomerName: "Walk-in buyer",
			InvoiceDate:  fixedDate(2025),
			Items: []InvoiceItemRequest{
				{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(50)},
			},
		})
		require.NoError(t, err, "invoice %d", i+1)
		assert.Equal(t, want, resp.InvoiceNumber)
	}
}

func TestIssueInvoice_InsufficientStockRollsBackEverything(t *testing.T) {
	env := newInvoiceTestEnv(t)
	plenty := createTestProduct(t, env.db, "WID-OK", 100)
	scarce := createTestProduct(t, env.db, "WID-SCARCE", 1)
	ctx := context.Background()

	_, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: plenty.ID.String(), Quantity: 5, Rate: decimal.NewFromInt(10)},
			{ProductID: scarce.ID.String(), Quantity: 3, Rate: decimal.NewFromInt(10)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsInsufficientStock(err))

	// The whole issuance rolled back: no invoice, no movements, stock and the
	// number counter untouched.
	var invoiceCount int64
	require.NoError(t, env.db.Model(&model.Invoice{}).Count(&invoiceCount).Error)
	assert.Zero(t, invoiceCount)

	var movementCount int64
	require.NoError(t, env.db.Model(&model.StockMovement{}).Count(&movementCount).Error)
	assert.Zero(t, movementCount)

	var stored model.Product
	require.NoError(t, env.db.First(&stored, "id = ?", plenty.ID).Error)
	assert.Equal(t, 100, stored.Stock)

	current, err := env.sequenceRepo.Current(ctx, 2025, "INV")
	require.NoError(t, err)
	assert.Zero(t, current)

	// The next successful issuance gets the first number.
	resp, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: plenty.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/25-26/000001", resp.InvoiceNumber)
}

func TestIssueInvoice_ExactlyOneCustomerReference(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-004", 10)
	customer := env.createCustomer(t, "Mumbai Retail", "Maharashtra")
	ctx := context.Background()

	items := []InvoiceItemRequest{
		{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(100)},
	}

	_, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{Items: items})
	assert.True(t, apperr.IsValidation(err), "neither reference must be rejected")

	_, err = env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerID:   customer.ID.String(),
		CustomerName: "Walk-in buyer",
		Items:        items,
	})
	assert.True(t, apperr.IsValidation(err), "both references must be rejected")
}

func TestIssueInvoice_ValidationCollectsAllViolations(t *testing.T) {
	env := newInvoiceTestEnv(t)

	_, err := env.invoiceSvc.IssueInvoice(context.Background(), "tester", IssueInvoiceRequest{
		Discount: decimal.NewFromInt(-5),
		Items: []InvoiceItemRequest{
			{ProductID: "x", Quantity: 0, Rate: decimal.Zero},
		},
	})
	require.Error(t, err)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Violations), 4)
}

func TestIssueInvoice_UnknownCustomer(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-005", 10)

	_, err := env.invoiceSvc.IssueInvoice(context.Background(), "tester", IssueInvoiceRequest{
		CustomerID: "11111111-1111-1111-1111-111111111111",
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(100)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestIssueInvoice_AdHocBuyerState(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-006", 10)

	// An ad-hoc buyer with an explicit out-of-state jurisdiction gets IGST.
	resp, err := env.invoiceSvc.IssueInvoice(context.Background(), "tester", IssueInvoiceRequest{
		CustomerName:  "Out-of-state buyer",
		CustomerState: "Karnataka",
		InvoiceDate:   fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(200)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Karnataka", resp.CustomerState)
	assert.Equal(t, "36.00", resp.IGST)
	assert.Equal(t, "0.00", resp.CGST)
}

func TestIssueInvoice_InvoiceLevelDiscount(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-007", 10)

	// Tax is computed on pre-discount line amounts; the invoice discount only
	// reduces the subtotal.
	resp, err := env.invoiceSvc.IssueInvoice(context.Background(), "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Discount:     decimal.NewFromInt(50),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 3, Rate: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "250.00", resp.Subtotal)
	assert.Equal(t, "50.00", resp.Discount)
	assert.Equal(t, "27.00", resp.CGST)
	assert.Equal(t, "27.00", resp.SGST)
	assert.Equal(t, "304.00", resp.Total)
}

func TestCancelInvoice_RestoresStock(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-008", 10)
	ctx := context.Background()

	issued, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 4, Rate: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)

	var stored model.Product
	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	require.Equal(t, 6, stored.Stock)

	cancelled, err := env.invoiceSvc.CancelInvoice(ctx, "tester", issued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusCancelled, cancelled.Status)

	require.NoError(t, env.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, 10, stored.Stock)

	// The cancellation is itself a ledger entry, not an erased sale.
	var movements []model.StockMovement
	require.NoError(t, env.db.Where("product_id = ?", product.ID).
		Order("created_at asc").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, model.MovementOut, movements[0].Type)
	assert.Equal(t, model.MovementIn, movements[1].Type)
	assert.Equal(t, issued.InvoiceNumber, movements[1].Reference)

	// A cancelled invoice cannot be cancelled again.
	_, err = env.invoiceSvc.CancelInvoice(ctx, "tester", issued.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestGetInvoice(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-009", 10)
	ctx := context.Background()

	issued, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(75)},
		},
	})
	require.NoError(t, err)

	fetched, err := env.invoiceSvc.GetInvoice(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.InvoiceNumber, fetched.InvoiceNumber)
	assert.Equal(t, issued.Total, fetched.Total)

	_, err = env.invoiceSvc.GetInvoice(ctx, "22222222-2222-2222-2222-222222222222")
	assert.True(t, apperr.IsNotFound(err))
}

func TestListInvoices_FilterByStatus(t *testing.T) {
	env := newInvoiceTestEnv(t)
	product := createTestProduct(t, env.db, "WID-010", 100)
	ctx := context.Background()

	first, err := env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	_, err = env.invoiceSvc.IssueInvoice(ctx, "tester", IssueInvoiceRequest{
		CustomerName: "Walk-in buyer",
		InvoiceDate:  fixedDate(2025),
		Items: []InvoiceItemRequest{
			{ProductID: product.ID.String(), Quantity: 1, Rate: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	_, err = env.invoiceSvc.CancelInvoice(ctx, "tester", first.ID)
	require.NoError(t, err)

	issued, total, err := env.invoiceSvc.ListInvoices(ctx, InvoiceFilter{Status: model.InvoiceStatusIssued})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, issued, 1)
	assert.Equal(t, model.InvoiceStatusIssued, issued[0].Status)

	all, total, err := env.invoiceSvc.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}
