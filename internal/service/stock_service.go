package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/model"
	"gstbill/internal/repository"
	ws "gstbill/internal/websocket"
)

// DTOs

type MovementRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity  int    `json:"quantity" binding:"required"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

type MovementResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	ProductSKU string `json:"product_sku,omitempty"`
	Product    string `json:"product_name,omitempty"`
	Type       string `json:"type"`
	Quantity   int    `json:"quantity"`
	StockAfter int    `json:"stock_after"`
	Reference  string `json:"reference,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// StockService is the stock ledger: every stock change goes through
// ApplyMovement, which appends an immutable movement record and adjusts the
// product's stock in the same transaction. It joins an enclosing transaction
// when the caller already opened one (invoice issuance), so a failed line
// rolls the whole issuance back.
type StockService interface {
	ApplyMovement(ctx context.Context, req MovementRequest) (MovementResponse, error)
	ListMovements(ctx context.Context, page, limit int) ([]MovementResponse, int64, error)
}

type stockService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewStockService(
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) StockService {
	return &stockService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

// effectiveDelta maps a movement request onto the signed delta actually
// applied: IN adds, OUT subtracts, ADJUSTMENT applies the quantity as given.
func effectiveDelta(movementType string, quantity int) (int, error) {
	abs := quantity
	if abs < 0 {
		abs = -abs
	}
	switch movementType {
	case model.MovementIn:
		return abs, nil
	case model.MovementOut:
		return -abs, nil
	case model.MovementAdjustment:
		return quantity, nil
	default:
		return 0, apperr.Validation("type", "must be one of IN, OUT, ADJUSTMENT")
	}
}

func (s *stockService) ApplyMovement(ctx context.Context, req MovementRequest) (MovementResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return MovementResponse{}, apperr.Validation("product_id", "must be a valid UUID")
	}

	delta, err := effectiveDelta(req.Type, req.Quantity)
	if err != nil {
		return MovementResponse{}, err
	}

	joined := repository.HasTx(ctx)

	var resp MovementResponse
	var lowStock bool
	txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, findErr := s.productRepo.FindByID(txCtx, productID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("product", req.ProductID)
			}
			return fmt.Errorf("failed to find product %s: %w", req.ProductID, findErr)
		}

		ok, adjErr := s.productRepo.AdjustStock(txCtx, productID, delta)
		if adjErr != nil {
			return fmt.Errorf("failed to adjust stock: %w", adjErr)
		}
		if !ok {
			return &apperr.InsufficientStockError{
				ProductID: req.ProductID,
				Requested: -delta,
				Available: product.Stock,
			}
		}

		// Re-read inside the transaction; sees our own update even under
		// concurrent issuance against the same product.
		updated, readErr := s.productRepo.FindByID(txCtx, productID)
		if readErr != nil {
			return fmt.Errorf("failed to re-read product stock: %w", readErr)
		}

		movement := &model.StockMovement{
			ProductID:  productID,
			Type:       req.Type,
			Quantity:   delta,
			StockAfter: updated.Stock,
			Reference:  req.Reference,
			Notes:      req.Notes,
		}
		if createErr := s.movementRepo.Create(txCtx, movement); createErr != nil {
			return fmt.Errorf("failed to record stock movement: %w", createErr)
		}

		lowStock = updated.Stock < updated.MinStock
		resp = toMovementResponse(movement, product)
		return nil
	})
	if txErr != nil {
		return MovementResponse{}, txErr
	}

	// Broadcast only once the transaction actually committed. When this call
	// joined an outer transaction the owner is responsible for notifications.
	if !joined {
		s.broadcast("stock_movement", resp)
		if lowStock {
			s.broadcast("low_stock", map[string]interface{}{
				"product_id": resp.ProductID,
				"sku":        resp.ProductSKU,
				"stock":      resp.StockAfter,
			})
		}
	}

	return resp, nil
}

func (s *stockService) ListMovements(ctx context.Context, page, limit int) ([]MovementResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	movements, total, err := s.movementRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stock movements: %w", err)
	}

	res := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		res = append(res, toMovementResponse(&m, m.Product))
	}
	return res, total, nil
}

func (s *stockService) broadcast(event string, data interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func toMovementResponse(m *model.StockMovement, product *model.Product) MovementResponse {
	resp := MovementResponse{
		ID:         m.ID.String(),
		ProductID:  m.ProductID.String(),
		Type:       m.Type,
		Quantity:   m.Quantity,
		StockAfter: m.StockAfter,
		Reference:  m.Reference,
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if product != nil {
		resp.ProductSKU = product.SKU
		resp.Product = product.Name
	}
	return resp
}
