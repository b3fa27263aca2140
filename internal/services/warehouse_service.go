package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/repositories"
	"stockledger/pkg/utils"
)

// WarehouseRequest is the create and full-update payload of a warehouse.
type WarehouseRequest struct {
	Name           string  `json:"name"`
	Branch         string  `json:"branch"`
	Address        *string `json:"address"`
	Manager        *string `json:"manager"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Status         string  `json:"status"`
	AssignedUserID *int64  `json:"assigned_user_id"`
}

// WarehouseService is the warehouse registry.
type WarehouseService interface {
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	CreateWarehouse(ctx context.Context, req WarehouseRequest) (*models.Warehouse, error)
	UpdateWarehouse(ctx context.Context, id int64, req WarehouseRequest) (*models.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id int64) error
}

type warehouseService struct {
	db            *sql.DB
	warehouseRepo repositories.WarehouseRepository
	itemRepo      repositories.ItemRepository
	authRepo      repositories.AuthRepository
	timeout       time.Duration
}

// NewWarehouseService creates a new instance of WarehouseService.
func NewWarehouseService(db *sql.DB, wr repositories.WarehouseRepository, ir repositories.ItemRepository, ar repositories.AuthRepository, timeout time.Duration) WarehouseService {
	return &warehouseService{db: db, warehouseRepo: wr, itemRepo: ir, authRepo: ar, timeout: timeout}
}

func (s *warehouseService) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	warehouses, err := s.warehouseRepo.List(ctx, s.db)
	if err != nil {
		return nil, storageErr("list warehouses", "", err)
	}
	return warehouses, nil
}

func (s *warehouseService) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	warehouse, err := s.warehouseRepo.GetByID(ctx, s.db, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWarehouseNotFound
		}
		return nil, storageErr("get warehouse", "", err)
	}
	return warehouse, nil
}

func validateWarehouseRequest(req WarehouseRequest) (*models.Warehouse, error) {
	if utils.IsEmpty(req.Name) || utils.IsEmpty(req.Branch) {
		return nil, fmt.Errorf("%w: name and branch are required", ErrValidation)
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.WarehouseStatusActive
	}
	if status != models.WarehouseStatusActive && status != models.WarehouseStatusInactive {
		return nil, fmt.Errorf("%w: status must be active or inactive", ErrValidation)
	}
	email := utils.TrimPtr(req.Email)
	if email != nil && !utils.IsValidEmail(*email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return &models.Warehouse{
		Name:           strings.TrimSpace(req.Name),
		Branch:         strings.TrimSpace(req.Branch),
		Address:        utils.TrimPtr(req.Address),
		Manager:        utils.TrimPtr(req.Manager),
		Phone:          utils.TrimPtr(req.Phone),
		Email:          email,
		Status:         status,
		AssignedUserID: req.AssignedUserID,
	}, nil
}

func (s *warehouseService) CreateWarehouse(ctx context.Context, req WarehouseRequest) (*models.Warehouse, error) {
	warehouse, err := validateWarehouseRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.warehouseRepo.Create(ctx, s.db, warehouse); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: assigned user does not exist", ErrValidation)
		}
		return nil, storageErr("create warehouse", "", err)
	}
	s.bindAssignedUser(ctx, warehouse)
	utils.LogInfo("Warehouse created", map[string]interface{}{"warehouse_id": warehouse.ID, "name": warehouse.Name})
	return warehouse, nil
}

func (s *warehouseService) UpdateWarehouse(ctx context.Context, id int64, req WarehouseRequest) (*models.Warehouse, error) {
	warehouse, err := validateWarehouseRequest(req)
	if err != nil {
		return nil, err
	}
	warehouse.ID = id

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.warehouseRepo.Update(ctx, s.db, warehouse); err != nil {
		if isNotFound(err) {
			return nil, ErrWarehouseNotFound
		}
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: assigned user does not exist", ErrValidation)
		}
		return nil, storageErr("update warehouse", "", err)
	}
	s.bindAssignedUser(ctx, warehouse)
	return warehouse, nil
}

// bindAssignedUser points the assigned user's warehouse at w. A failure here
// leaves the warehouse saved and is only logged.
func (s *warehouseService) bindAssignedUser(ctx context.Context, w *models.Warehouse) {
	if w.AssignedUserID == nil {
		return
	}
	if err := s.authRepo.SetUserWarehouse(ctx, s.db, *w.AssignedUserID, w.ID); err != nil {
		utils.LogWarn(err, "Failed to bind assigned user to warehouse", map[string]interface{}{
			"warehouse_id": w.ID, "user_id": *w.AssignedUserID,
		})
	}
}

// DeleteWarehouse refuses to remove a warehouse that still holds items.
func (s *warehouseService) DeleteWarehouse(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return inTx(ctx, s.db, "delete warehouse", func(tx *sql.Tx) error {
		if _, err := s.warehouseRepo.GetByID(ctx, tx, id); err != nil {
			if isNotFound(err) {
				return ErrWarehouseNotFound
			}
			return storageErr("delete warehouse", "load warehouse", err)
		}
		count, err := s.itemRepo.CountByWarehouse(ctx, tx, id)
		if err != nil {
			return storageErr("delete warehouse", "count items", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %d items", ErrWarehouseInUse, count)
		}
		if err := s.warehouseRepo.Delete(ctx, tx, id); err != nil {
			if isNotFound(err) {
				return ErrWarehouseNotFound
			}
			if errors.Is(err, repositories.ErrForeignKey) {
				return ErrWarehouseInUse
			}
			return storageErr("delete warehouse", "delete warehouse", err)
		}
		utils.LogInfo("Warehouse deleted", map[string]interface{}{"warehouse_id": id})
		return nil
	})
}
