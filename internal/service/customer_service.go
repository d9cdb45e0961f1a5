package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/gst"
	"gstbill/internal/model"
	"gstbill/internal/repository"
)

// DTOs

type CustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	GSTIN   string `json:"gstin"`
	Address string `json:"address" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Pincode string `json:"pincode" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" binding:"omitempty,email"`
}

type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GSTIN     string `json:"gstin,omitempty"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	StateCode string `json:"state_code"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

type CustomerService interface {
	GetCustomers(ctx context.Context, page, limit int, search string) ([]CustomerResponse, int64, error)
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	CreateCustomer(ctx context.Context, actor string, req CustomerRequest) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, actor string, id string, req CustomerRequest) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, actor string, id string) error
}

type customerService struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *customerService) GetCustomers(ctx context.Context, page, limit int, search string) ([]CustomerResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	customers, total, err := s.customerRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	res := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		res = append(res, toCustomerResponse(&customers[i]))
	}
	return res, total, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperr.Validation("id", "must be a valid UUID")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, apperr.NotFound("customer", id)
		}
		return CustomerResponse{}, fmt.Errorf("failed to fetch customer: %w", err)
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) CreateCustomer(ctx context.Context, actor string, req CustomerRequest) (CustomerResponse, error) {
	customer := model.Customer{
		Name:      req.Name,
		GSTIN:     req.GSTIN,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		StateCode: deriveStateCode(req),
		Pincode:   req.Pincode,
		Phone:     req.Phone,
		Email:     req.Email,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionCreateCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	return toCustomerResponse(&customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, actor string, id string, req CustomerRequest) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, apperr.Validation("id", "must be a valid UUID")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, apperr.NotFound("customer", id)
		}
		return CustomerResponse{}, fmt.Errorf("failed to fetch customer: %w", err)
	}

	customer.Name = req.Name
	customer.GSTIN = req.GSTIN
	customer.Address = req.Address
	customer.City = req.City
	customer.State = req.State
	customer.StateCode = deriveStateCode(req)
	customer.Pincode = req.Pincode
	customer.Phone = req.Phone
	customer.Email = req.Email

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionUpdateCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	return toCustomerResponse(customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, actor string, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validation("id", "must be a valid UUID")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("customer", id)
		}
		return fmt.Errorf("failed to fetch customer: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Delete(txCtx, customerID); err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}

		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionDeleteCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// deriveStateCode prefers the state encoded in the GSTIN registration over the
// free-text state field.
func deriveStateCode(req CustomerRequest) string {
	if code := gst.StateFromGSTIN(req.GSTIN); code != "" {
		return code
	}
	return req.State
}

func toCustomerResponse(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		GSTIN:     c.GSTIN,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		StateCode: c.StateCode,
		Pincode:   c.Pincode,
		Phone:     c.Phone,
		Email:     c.Email,
	}
}
