package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstbill/internal/apperr"
	"gstbill/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondError_ValidationCarriesViolations(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", nil)

	ve := apperr.Validation("customer_id", "exactly one of customer_id or customer_name is required")
	ve.Add("items", "at least one item is required")
	respondError(c, ve)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "error", body["status"])
	violations, ok := body["violations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, violations, 2)
}

func TestRespondError_NotFound(t *testing.T) {
	c, w := newTestContext(t, http.MethodGet, "/api/products/x", nil)

	respondError(c, apperr.NotFound("product", "x"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRespondError_InsufficientStockIsConflict(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", nil)

	respondError(c, &apperr.InsufficientStockError{ProductID: "p", Requested: 5, Available: 2})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRespondError_ConcurrencyConflict(t *testing.T) {
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", nil)

	respondError(c, apperr.ErrConflict)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "retry")
}

func TestRespondError_OpaqueInternalError(t *testing.T) {
	c, w := newTestContext(t, http.MethodGet, "/api/invoices", nil)

	respondError(c, errors.New("pq: connection refused to 10.0.0.3:5432"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "internal error", body["error"], "internal detail must not leak")
}

// --- boundary-specific mapping ---

type stubStockService struct {
	applyErr error
	resp     service.MovementResponse
}

func (s *stubStockService) ApplyMovement(ctx context.Context, req service.MovementRequest) (service.MovementResponse, error) {
	return s.resp, s.applyErr
}

func (s *stubStockService) ListMovements(ctx context.Context, page, limit int) ([]service.MovementResponse, int64, error) {
	return nil, 0, nil
}

type stubInvoiceService struct {
	issueErr error
	resp     service.InvoiceResponse
}

func (s *stubInvoiceService) IssueInvoice(ctx context.Context, actor string, req service.IssueInvoiceRequest) (service.InvoiceResponse, error) {
	return s.resp, s.issueErr
}

func (s *stubInvoiceService) CancelInvoice(ctx context.Context, actor string, id string) (service.InvoiceResponse, error) {
	return s.resp, s.issueErr
}

func (s *stubInvoiceService) GetInvoice(ctx context.Context, id string) (service.InvoiceResponse, error) {
	return s.resp, s.issueErr
}

func (s *stubInvoiceService) ListInvoices(ctx context.Context, filter service.InvoiceFilter) ([]service.InvoiceResponse, int64, error) {
	return nil, 0, nil
}

func movementPayload() service.MovementRequest {
	return service.MovementRequest{
		ProductID: "11111111-1111-1111-1111-111111111111",
		Type:      "OUT",
		Quantity:  5,
	}
}

func invoicePayload() map[string]interface{} {
	return map[string]interface{}{
		"customer_name": "Walk-in buyer",
		"items": []map[string]interface{}{
			{"product_id": "11111111-1111-1111-1111-111111111111", "quantity": 5, "rate": 100},
		},
	}
}

// A movement that would drive stock negative is a bad request on the
// stock-movement boundary but a conflict on the invoice boundary, where it
// means the issuance raced another sale.
func TestCreateMovement_InsufficientStockIsBadRequest(t *testing.T) {
	h := NewStockHandler(&stubStockService{
		applyErr: &apperr.InsufficientStockError{ProductID: "p", Requested: 5, Available: 2},
	})
	c, w := newTestContext(t, http.MethodPost, "/api/stock-movements", movementPayload())

	h.CreateMovement(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "insufficient stock")
}

func TestIssueInvoice_InsufficientStockIsConflict(t *testing.T) {
	h := NewInvoiceHandler(&stubInvoiceService{
		issueErr: &apperr.InsufficientStockError{ProductID: "p", Requested: 5, Available: 2},
	})
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", invoicePayload())

	h.IssueInvoice(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIssueInvoice_ConflictAsksForRetry(t *testing.T) {
	h := NewInvoiceHandler(&stubInvoiceService{issueErr: apperr.ErrConflict})
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", invoicePayload())

	h.IssueInvoice(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIssueInvoice_ValidationViolationsReachTheClient(t *testing.T) {
	h := NewInvoiceHandler(&stubInvoiceService{
		issueErr: apperr.Validation("items[0].rate", "must be greater than zero"),
	})
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", invoicePayload())

	h.IssueInvoice(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	violations, ok := body["violations"].([]interface{})
	require.True(t, ok)
	require.Len(t, violations, 1)
	first, ok := violations[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "items[0].rate", first["field"])
}

func TestIssueInvoice_Created(t *testing.T) {
	h := NewInvoiceHandler(&stubInvoiceService{
		resp: service.InvoiceResponse{InvoiceNumber: "INV/25-26/000001"},
	})
	c, w := newTestContext(t, http.MethodPost, "/api/invoices", invoicePayload())

	h.IssueInvoice(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "INV/25-26/000001", data["invoice_number"])
}
