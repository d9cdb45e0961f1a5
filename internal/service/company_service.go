package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gstbill/internal/apperr"
	"gstbill/internal/model"
	"gstbill/internal/repository"
)

type CompanyRequest struct {
	Name          string `json:"name" binding:"required"`
	GSTIN         string `json:"gstin"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state" binding:"required"`
	Pincode       string `json:"pincode"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	BankName      string `json:"bank_name"`
	BankAccount   string `json:"bank_account"`
	BankIFSC      string `json:"bank_ifsc"`
	InvoicePrefix string `json:"invoice_prefix"`
}

type CompanyResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	GSTIN         string `json:"gstin,omitempty"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	BankAccount   string `json:"bank_account,omitempty"`
	BankIFSC      string `json:"bank_ifsc,omitempty"`
	InvoicePrefix string `json:"invoice_prefix"`
}

// CompanyService manages the single seller profile that feeds invoice
// numbering (prefix) and tax treatment (seller state).
type CompanyService interface {
	GetCompany(ctx context.Context) (CompanyResponse, error)
	SaveCompany(ctx context.Context, actor string, req CompanyRequest) (CompanyResponse, error)
}

type companyService struct {
	companyRepo repository.CompanyRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewCompanyService(
	companyRepo repository.CompanyRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CompanyService {
	return &companyService{
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

func (s *companyService) GetCompany(ctx context.Context) (CompanyResponse, error) {
	company, err := s.companyRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CompanyResponse{}, apperr.NotFound("company", "")
		}
		return CompanyResponse{}, fmt.Errorf("failed to fetch company profile: %w", err)
	}
	return toCompanyResponse(company), nil
}

func (s *companyService) SaveCompany(ctx context.Context, actor string, req CompanyRequest) (CompanyResponse, error) {
	company := model.Company{
		Name:          req.Name,
		GSTIN:         req.GSTIN,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		Phone:         req.Phone,
		Email:         req.Email,
		BankName:      req.BankName,
		BankAccount:   req.BankAccount,
		BankIFSC:      req.BankIFSC,
		InvoicePrefix: defaultString(req.InvoicePrefix, model.DefaultInvoicePrefix),
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.companyRepo.Upsert(txCtx, &company); err != nil {
			return fmt.Errorf("failed to save company profile: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			Actor:      actor,
			Action:     model.ActionUpdateCompany,
			EntityID:   company.ID.String(),
			EntityName: company.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return CompanyResponse{}, err
	}

	return toCompanyResponse(&company), nil
}

func toCompanyResponse(c *model.Company) CompanyResponse {
	return CompanyResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		GSTIN:         c.GSTIN,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		Pincode:       c.Pincode,
		Phone:         c.Phone,
		Email:         c.Email,
		BankName:      c.BankName,
		BankAccount:   c.BankAccount,
		BankIFSC:      c.BankIFSC,
		InvoicePrefix: c.InvoicePrefix,
	}
}
