package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/model"
	"gstbill/internal/repository"
)

// DTOs

type CreateProductRequest struct {
	SKU         string          `json:"sku" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	HSN         string          `json:"hsn"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
}

type UpdateProductRequest struct {
	SKU         string          `json:"sku" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	HSN         string          `json:"hsn"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	MinStock    int             `json:"min_stock"`
}

type ProductResponse struct {
	ID          string             `json:"id"`
	SKU         string             `json:"sku"`
	Name        string             `json:"name"`
	HSN         string             `json:"hsn"`
	Unit        string             `json:"unit"`
	Category    string             `json:"category"`
	Description string             `json:"description,omitempty"`
	Price       string             `json:"price"`
	TaxRate     string             `json:"tax_rate"`
	Stock       int                `json:"stock"`
	MinStock    int                `json:"min_stock"`
	Movements   []MovementResponse `json:"movements,omitempty"`
}

type ProductService interface {
	GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, actor string, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, actor string, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, actor string, id string) error
}

type productService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *productService) GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperr.Validation("id", "must be a valid UUID")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.NotFound("product", id)
		}
		return ProductResponse{}, fmt.Errorf("failed to fetch product: %w", err)
	}

	resp := toProductResponse(product)

	movements, err := s.movementRepo.ListByProduct(ctx, productID, 10)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to fetch product movements: %w", err)
	}
	for i := range movements {
		resp.Movements = append(resp.Movements, toMovementResponse(&movements[i], product))
	}

	return resp, nil
}

func (s *productService) CreateProduct(ctx context.Context, actor string, req CreateProductRequest) (ProductResponse, error) {
	if err := validateRate(req.TaxRate); err != nil {
		return ProductResponse{}, err
	}
	if req.Stock < 0 || req.MinStock < 0 {
		return ProductResponse{}, apperr.Validation("stock", "must not be negative")
	}

	product := model.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		HSN:         req.HSN,
		Unit:        defaultString(req.Unit, "PCS"),
		Category:    defaultString(req.Category, "General"),
		Description: req.Description,
		Price:       req.Price,
		TaxRate:     req.TaxRate,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(&product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor string, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperr.Validation("id", "must be a valid UUID")
	}
	if err := validateRate(req.TaxRate); err != nil {
		return ProductResponse{}, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.NotFound("product", id)
		}
		return ProductResponse{}, fmt.Errorf("failed to fetch product: %w", err)
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.HSN = req.HSN
	product.Unit = defaultString(req.Unit, product.Unit)
	product.Category = defaultString(req.Category, product.Category)
	product.Description = req.Description
	product.Price = req.Price
	product.TaxRate = req.TaxRate
	product.MinStock = req.MinStock

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, actor string, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validation("id", "must be a valid UUID")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product", id)
		}
		return fmt.Errorf("failed to fetch product: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return apperr.Validation("tax_rate", "must be between 0 and 100")
	}
	return nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		HSN:         p.HSN,
		Unit:        p.Unit,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		TaxRate:     p.TaxRate.String(),
		Stock:       p.Stock,
		MinStock:    p.MinStock,
	}
}
