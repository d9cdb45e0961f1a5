package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/gst"
	"gstbill/internal/model"
	"gstbill/internal/repository"
	ws "gstbill/internal/websocket"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Rate      decimal.Decimal `json:"rate" binding:"required"`
	Discount  decimal.Decimal `json:"discount"`
}

type IssueInvoiceRequest struct {
	CustomerID    string               `json:"customer_id"`
	CustomerName  string               `json:"customer_name"`
	CustomerState string               `json:"customer_state"` // ad-hoc buyers only; defaults to the seller's state
	InvoiceDate   *time.Time           `json:"invoice_date"`
	DueDate       *time.Time           `json:"due_date"`
	Discount      decimal.Decimal      `json:"discount"`
	Notes         string               `json:"notes"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

type InvoiceFilter struct {
	Status        string // ISSUED, CANCELLED or empty for all
	InvoiceNumber string // partial match
	Page          int
	Limit         int
}

type InvoiceItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductSKU  string `json:"product_sku,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
	Rate        string `json:"rate"`
	Discount    string `json:"discount"`
	TaxRate     string `json:"tax_rate"`
	CGST        string `json:"cgst"`
	SGST        string `json:"sgst"`
	IGST        string `json:"igst"`
	Amount      string `json:"amount"`
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	CustomerID    *string               `json:"customer_id"`
	CustomerName  string                `json:"customer_name"`
	CustomerState string                `json:"customer_state"`
	InvoiceDate   string                `json:"invoice_date"`
	DueDate       *string               `json:"due_date"`
	Subtotal      string                `json:"subtotal"`
	Discount      string                `json:"discount"`
	CGST          string                `json:"cgst"`
	SGST          string                `json:"sgst"`
	IGST          string                `json:"igst"`
	Total         string                `json:"total"`
	Status        string                `json:"status"`
	Notes         string                `json:"notes,omitempty"`
	Items         []InvoiceItemResponse `json:"items"`
	CreatedAt     string                `json:"created_at"`
}

// --- Interface ---

// InvoiceService is the issuance engine. IssueInvoice validates input,
// computes the per-line GST split, allocates a sequential invoice number and
// deducts stock through the ledger, all inside one transaction: either the
// full invoice graph commits or nothing does.
type InvoiceService interface {
	IssueInvoice(ctx context.Context, actor string, req IssueInvoiceRequest) (InvoiceResponse, error)
	CancelInvoice(ctx context.Context, actor string, id string) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	companyRepo  repository.CompanyRepository
	sequenceRepo repository.SequenceRepository
	auditRepo    repository.AuditRepository
	stockService StockService
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	companyRepo repository.CompanyRepository,
	sequenceRepo repository.SequenceRepository,
	auditRepo repository.AuditRepository,
	stockService StockService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		companyRepo:  companyRepo,
		sequenceRepo: sequenceRepo,
		auditRepo:    auditRepo,
		stockService: stockService,
		txManager:    txManager,
		hub:          hub,
	}
}

// FormatInvoiceNumber renders the externally visible invoice number contract:
// PREFIX/YY-YY+1/NNNNNN, fiscal-year display with a 6-digit counter.
// Changing this format breaks downstream consumers (printed invoices, filing
// records).
func FormatInvoiceNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s/%02d-%02d/%06d", prefix, year%100, (year+1)%100, seq)
}

// --- Implementation ---

func (s *invoiceService) IssueInvoice(ctx context.Context, actor string, req IssueInvoiceRequest) (InvoiceResponse, error) {
	if err := validateIssueRequest(req); err != nil {
		return InvoiceResponse{}, err
	}

	var invoiceID uuid.UUID
	var invoiceNumber string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		company, err := s.companyRepo.Get(txCtx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("company profile is not configured")
			}
			return fmt.Errorf("failed to load company profile: %w", err)
		}

		customerID, buyerState, err := s.resolveBuyer(txCtx, req, company.State)
		if err != nil {
			return err
		}

		invoiceDate := time.Now().UTC()
		if req.InvoiceDate != nil {
			invoiceDate = req.InvoiceDate.UTC()
		}

		subtotal := decimal.Zero
		totalCGST := decimal.Zero
		totalSGST := decimal.Zero
		totalIGST := decimal.Zero
		items := make([]model.InvoiceItem, 0, len(req.Items))

		for i, itemReq := range req.Items {
			productID, parseErr := uuid.Parse(itemReq.ProductID)
			if parseErr != nil {
				return apperr.Validation(fmt.Sprintf("items[%d].product_id", i), "must be a valid UUID")
			}

			product, findErr := s.productRepo.FindByID(txCtx, productID)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return apperr.NotFound("product", itemReq.ProductID)
				}
				return fmt.Errorf("failed to find product %s: %w", itemReq.ProductID, findErr)
			}

			lineAmount := decimal.NewFromInt(int64(itemReq.Quantity)).Mul(itemReq.Rate).Sub(itemReq.Discount)
			if lineAmount.IsNegative() {
				return apperr.Validation(fmt.Sprintf("items[%d].discount", i), "exceeds the line amount")
			}

			breakup, taxErr := gst.Calculate(lineAmount, product.TaxRate, company.State, buyerState)
			if taxErr != nil {
				return taxErr
			}

			subtotal = subtotal.Add(lineAmount)
			totalCGST = totalCGST.Add(breakup.CGST)
			totalSGST = totalSGST.Add(breakup.SGST)
			totalIGST = totalIGST.Add(breakup.IGST)

			items = append(items, model.InvoiceItem{
				ProductID: productID,
				Quantity:  itemReq.Quantity,
				Rate:      itemReq.Rate,
				Discount:  itemReq.Discount,
				TaxRate:   product.TaxRate,
				CGST:      breakup.CGST.Round(2),
				SGST:      breakup.SGST.Round(2),
				IGST:      breakup.IGST.Round(2),
				Amount:    lineAmount.Add(breakup.Total).Round(2),
			})
		}

		// Invoice-level discount comes off the subtotal once; the tax above is
		// computed on pre-discount line amounts. Deliberate business rule
		// carried over from the manual billing process.
		subtotal = subtotal.Sub(req.Discount)
		grandTotal := subtotal.Add(totalCGST).Add(totalSGST).Add(totalIGST)

		prefix := company.InvoicePrefix
		if prefix == "" {
			prefix = model.DefaultInvoicePrefix
		}

		seq, seqErr := s.sequenceRepo.Next(txCtx, invoiceDate.Year(), prefix)
		if seqErr != nil {
			return seqErr
		}
		invoiceNumber = FormatInvoiceNumber(prefix, invoiceDate.Year(), seq)

		invoice := &model.Invoice{
			InvoiceNumber: invoiceNumber,
			CustomerID:    customerID,
			CustomerName:  req.CustomerName,
			CustomerState: buyerState,
			InvoiceDate:   invoiceDate,
			DueDate:       req.DueDate,
			Subtotal:      subtotal.Round(2),
			Discount:      req.Discount.Round(2),
			CGST:          totalCGST.Round(2),
			SGST:          totalSGST.Round(2),
			IGST:          totalIGST.Round(2),
			Total:         grandTotal.Round(2),
			Status:        model.InvoiceStatusIssued,
			Notes:         req.Notes,
			Items:         items,
		}
		if createErr := s.invoiceRepo.Create(txCtx, invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}

		// Deduct stock per line through the ledger. Joins this transaction, so
		// an InsufficientStock on any line rolls back the invoice, the counter
		// increment and every earlier movement in one go.
		for _, itemReq := range req.Items {
			if _, moveErr := s.stockService.ApplyMovement(txCtx, MovementRequest{
				ProductID: itemReq.ProductID,
				Type:      model.MovementOut,
				Quantity:  itemReq.Quantity,
				Reference: invoiceNumber,
				Notes:     "Sale via invoice " + invoiceNumber,
			}); moveErr != nil {
				return moveErr
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"invoice_number": invoiceNumber,
			"total":          invoice.Total,
			"line_count":     len(items),
		})
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionIssueInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoiceNumber,
			Details:    string(details),
		}); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		invoiceID = invoice.ID
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	reloaded, err := s.invoiceRepo.FindByIDWithGraph(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	resp := toInvoiceResponse(reloaded)
	s.broadcast("invoice_issued", map[string]interface{}{
		"invoice_number": resp.InvoiceNumber,
		"total":          resp.Total,
	})
	return resp, nil
}

func (s *invoiceService) CancelInvoice(ctx context.Context, actor string, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.Validation("id", "must be a valid UUID")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByID(txCtx, invoiceID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("invoice", id)
			}
			return fmt.Errorf("failed to find invoice: %w", findErr)
		}

		if invoice.Status != model.InvoiceStatusIssued {
			return apperr.Validation("status", "invoice is already "+invoice.Status)
		}

		now := time.Now().UTC()
		invoice.Status = model.InvoiceStatusCancelled
		invoice.CancelledAt = &now
		if updateErr := s.invoiceRepo.UpdateStatus(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to cancel invoice: %w", updateErr)
		}

		// Compensating IN movements restore what the sale deducted.
		for _, item := range invoice.Items {
			if _, moveErr := s.stockService.ApplyMovement(txCtx, MovementRequest{
				ProductID: item.ProductID.String(),
				Type:      model.MovementIn,
				Quantity:  item.Quantity,
				Reference: invoice.InvoiceNumber,
				Notes:     "Cancellation of invoice " + invoice.InvoiceNumber,
			}); moveErr != nil {
				return moveErr
			}
		}

		details, _ := json.Marshal(map[string]interface{}{"invoice_number": invoice.InvoiceNumber})
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionCancelInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNumber,
			Details:    string(details),
		}); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	reloaded, err := s.invoiceRepo.FindByIDWithGraph(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}
	return toInvoiceResponse(reloaded), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, apperr.Validation("id", "must be a valid UUID")
	}

	invoice, err := s.invoiceRepo.FindByIDWithGraph(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperr.NotFound("invoice", id)
		}
		return InvoiceResponse{}, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		Status:        filter.Status,
		InvoiceNumber: filter.InvoiceNumber,
		Page:          filter.Page,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		result = append(result, toInvoiceResponse(&invoices[i]))
	}
	return result, total, nil
}

// --- Helpers ---

func validateIssueRequest(req IssueInvoiceRequest) error {
	ve := &apperr.ValidationError{}

	hasCustomerID := req.CustomerID != ""
	hasCustomerName := req.CustomerName != ""
	if hasCustomerID == hasCustomerName {
		ve.Add("customer_id", "exactly one of customer_id or customer_name is required")
	}
	if req.Discount.IsNegative() {
		ve.Add("discount", "must not be negative")
	}
	if len(req.Items) == 0 {
		ve.Add("items", "at least one item is required")
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			ve.Add(fmt.Sprintf("items[%d].quantity", i), "must be a positive integer")
		}
		if !item.Rate.IsPositive() {
			ve.Add(fmt.Sprintf("items[%d].rate", i), "must be greater than zero")
		}
		if item.Discount.IsNegative() {
			ve.Add(fmt.Sprintf("items[%d].discount", i), "must not be negative")
		}
	}

	if len(ve.Violations) > 0 {
		return ve
	}
	return nil
}

// resolveBuyer determines the buyer's identity and taxing state. Registered
// customers use their stored state; ad-hoc buyers may pass customer_state and
// otherwise fall back to the seller's state.
func (s *invoiceService) resolveBuyer(ctx context.Context, req IssueInvoiceRequest, sellerState string) (*uuid.UUID, string, error) {
	if req.CustomerID == "" {
		state := req.CustomerState
		if state == "" {
			state = sellerState
		}
		return nil, state, nil
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, "", apperr.Validation("customer_id", "must be a valid UUID")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.NotFound("customer", req.CustomerID)
		}
		return nil, "", fmt.Errorf("failed to find customer: %w", err)
	}

	return &customer.ID, customer.State, nil
}

func (s *invoiceService) broadcast(event string, data interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func toInvoiceResponse(inv *model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		CustomerState: inv.CustomerState,
		InvoiceDate:   inv.InvoiceDate.Format("2006-01-02"),
		Subtotal:      inv.Subtotal.StringFixed(2),
		Discount:      inv.Discount.StringFixed(2),
		CGST:          inv.CGST.StringFixed(2),
		SGST:          inv.SGST.StringFixed(2),
		IGST:          inv.IGST.StringFixed(2),
		Total:         inv.Total.StringFixed(2),
		Status:        inv.Status,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if inv.CustomerID != nil {
		id := inv.CustomerID.String()
		resp.CustomerID = &id
	}
	if inv.Customer != nil && resp.CustomerName == "" {
		resp.CustomerName = inv.Customer.Name
	}
	if inv.DueDate != nil {
		due := inv.DueDate.Format("2006-01-02")
		resp.DueDate = &due
	}

	resp.Items = make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		itemResp := InvoiceItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Rate:      item.Rate.StringFixed(2),
			Discount:  item.Discount.StringFixed(2),
			TaxRate:   item.TaxRate.String(),
			CGST:      item.CGST.StringFixed(2),
			SGST:      item.SGST.StringFixed(2),
			IGST:      item.IGST.StringFixed(2),
			Amount:    item.Amount.StringFixed(2),
		}
		if item.Product != nil {
			itemResp.ProductSKU = item.Product.SKU
			itemResp.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, itemResp)
	}
	return resp
}
