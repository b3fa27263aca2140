package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/repositories"
	"stockledger/pkg/utils"
)

type SupplierRequest struct {
	Name        string  `json:"name"`
	ContactName *string `json:"contact_name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
}

type SupplierService interface {
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, req SupplierRequest) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

type supplierService struct {
	db           *sql.DB
	supplierRepo repositories.SupplierRepository
	timeout      time.Duration
}

func NewSupplierService(db *sql.DB, sr repositories.SupplierRepository, timeout time.Duration) SupplierService {
	return &supplierService{db: db, supplierRepo: sr, timeout: timeout}
}

func (s *supplierService) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	suppliers, err := s.supplierRepo.List(ctx, s.db)
	if err != nil {
		return nil, storageErr("list suppliers", "", err)
	}
	return suppliers, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	supplier, err := s.supplierRepo.GetByID(ctx, s.db, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSupplierNotFound
		}
		return nil, storageErr("get supplier", "", err)
	}
	return supplier, nil
}

func supplierFromRequest(req SupplierRequest) (*models.Supplier, error) {
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: supplier name is required", ErrValidation)
	}
	email := utils.TrimPtr(req.Email)
	if email != nil && !utils.IsValidEmail(*email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return &models.Supplier{
		Name:        strings.TrimSpace(req.Name),
		ContactName: utils.TrimPtr(req.ContactName),
		Phone:       utils.TrimPtr(req.Phone),
		Email:       email,
		Address:     utils.TrimPtr(req.Address),
	}, nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error) {
	supplier, err := supplierFromRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.supplierRepo.Create(ctx, s.db, supplier); err != nil {
		return nil, storageErr("create supplier", "", err)
	}
	return supplier, nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id int64, req SupplierRequest) (*models.Supplier, error) {
	supplier, err := supplierFromRequest(req)
	if err != nil {
		return nil, err
	}
	supplier.ID = id

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.supplierRepo.Update(ctx, s.db, supplier); err != nil {
		if isNotFound(err) {
			return nil, ErrSupplierNotFound
		}
		return nil, storageErr("update supplier", "", err)
	}
	return supplier, nil
}

// DeleteSupplier does not cascade; items keep a dangling supplier_id.
func (s *supplierService) DeleteSupplier(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.supplierRepo.Delete(ctx, s.db, id); err != nil {
		if isNotFound(err) {
			return ErrSupplierNotFound
		}
		return storageErr("delete supplier", "", err)
	}
	return nil
}
