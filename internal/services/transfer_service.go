package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stockledger/internal/messaging"
	"stockledger/internal/models"
	"stockledger/internal/repositories"
	"stockledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// TransferRequest moves stock of one item between warehouses.
type TransferRequest struct {
	ItemID          *int64           `json:"item_id"`
	FromWarehouseID *int64           `json:"from_warehouse_id"`
	ToWarehouseID   *int64           `json:"to_warehouse_id"`
	Quantity        *decimal.Decimal `json:"quantity"`
	Reference       *string          `json:"reference"`
	Notes           *string          `json:"notes"`
}

type TransferService interface {
	Transfer(ctx context.Context, access models.AccessContext, req TransferRequest) (*models.TransferResult, error)
}

// maxTransferAttempts bounds how often a transfer is replayed after a
// retryable storage failure.
const maxTransferAttempts = 3

const transferOp = "transfer"

type transferService struct {
	db            *sql.DB
	itemRepo      repositories.ItemRepository
	movementRepo  repositories.MovementRepository
	warehouseRepo repositories.WarehouseRepository
	publisher     messaging.LedgerPublisher
	timeout       time.Duration
	now           func() time.Time
	backoff       func(attempt int) time.Duration
}

// NewTransferService creates a new instance of TransferService.
func NewTransferService(
	db *sql.DB,
	ir repositories.ItemRepository,
	mr repositories.MovementRepository,
	wr repositories.WarehouseRepository,
	publisher messaging.LedgerPublisher,
	timeout time.Duration,
) TransferService {
	return &transferService{
		db:            db,
		itemRepo:      ir,
		movementRepo:  mr,
		warehouseRepo: wr,
		publisher:     publisher,
		timeout:       timeout,
		now:           time.Now,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 20 * time.Millisecond
		},
	}
}

// validateTransfer checks the input-only preconditions, in order.
func validateTransfer(req TransferRequest) error {
	if req.ItemID == nil || req.FromWarehouseID == nil || req.ToWarehouseID == nil ||
		req.Quantity == nil || !req.Quantity.IsPositive() {
		return ErrMissingFields
	}
	if *req.FromWarehouseID == *req.ToWarehouseID {
		return ErrSameWarehouse
	}
	return CheckQuantity("quantity", *req.Quantity)
}

// Transfer decrements the source item, increments or creates its mirror in
// the destination warehouse and appends one transfer ledger row, all in one
// transaction. Both item rows are locked before they are changed.
func (s *transferService) Transfer(ctx context.Context, access models.AccessContext, req TransferRequest) (*models.TransferResult, error) {
	if err := validateTransfer(req); err != nil {
		return nil, err
	}
	if err := requireWarehouseAccess(access, *req.FromWarehouseID); err != nil {
		return nil, err
	}

	var (
		result *models.TransferResult
		err    error
	)
	for attempt := 1; attempt <= maxTransferAttempts; attempt++ {
		result, err = s.attempt(ctx, access, req)
		if err == nil || !IsRetryable(err) || attempt == maxTransferAttempts {
			break
		}
		utils.LogWarn(err, "Transfer attempt failed, retrying", map[string]interface{}{
			"attempt": attempt, "item_id": *req.ItemID,
		})
		select {
		case <-ctx.Done():
			return nil, storageErr(transferOp, "retry wait", ctx.Err())
		case <-time.After(s.backoff(attempt)):
		}
	}
	if err != nil {
		return nil, err
	}

	mv := &result.Movement
	utils.LogInfo("Stock transferred", map[string]interface{}{
		"movement_id": mv.ID, "item_id": mv.ItemID, "to_item_id": result.DestinationItem.ID,
		"from_warehouse_id": *req.FromWarehouseID, "to_warehouse_id": *req.ToWarehouseID,
		"quantity": mv.Quantity.String(), "mirror_created": result.DestinationCreated,
	})
	publishLedgerEvent(ctx, s.publisher, newLedgerEvent(models.EventStockTransferred, mv, result.SourceItem.SKU, result.SourceItem.Quantity, s.now()))
	return result, nil
}

func (s *transferService) attempt(ctx context.Context, access models.AccessContext, req TransferRequest) (*models.TransferResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	quantity := *req.Quantity
	fromID, toID := *req.FromWarehouseID, *req.ToWarehouseID
	result := &models.TransferResult{}

	err := inTx(ctx, s.db, transferOp, func(tx *sql.Tx) error {
		source, err := s.itemRepo.GetByIDForUpdate(ctx, tx, *req.ItemID)
		if err != nil {
			if isNotFound(err) {
				return ErrSourceItemNotFound
			}
			return storageErr(transferOp, "lock source item", err)
		}
		if source.WarehouseID != fromID {
			return ErrSourceItemNotFound
		}
		if source.Quantity.LessThan(quantity) {
			return fmt.Errorf("%w: %s has %s, %s requested", ErrInsufficientQuantity, source.SKU, source.Quantity, quantity)
		}

		destination, err := s.warehouseRepo.GetByID(ctx, tx, toID)
		if err != nil {
			if isNotFound(err) {
				return ErrWarehouseNotFound
			}
			return storageErr(transferOp, "load destination warehouse", err)
		}
		if destination.Status != models.WarehouseStatusActive {
			return ErrWarehouseInactive
		}

		if source.Quantity, err = s.itemRepo.AdjustQuantity(ctx, tx, source.ID, quantity.Neg()); err != nil {
			return storageErr(transferOp, "decrement source item", err)
		}

		mirror, err := s.itemRepo.FindBySKUForUpdate(ctx, tx, toID, source.SKU)
		switch {
		case err == nil:
			if err := checkResultingQuantity(mirror.SKU, mirror.Quantity.Add(quantity)); err != nil {
				return err
			}
			if mirror.Quantity, err = s.itemRepo.AdjustQuantity(ctx, tx, mirror.ID, quantity); err != nil {
				return storageErr(transferOp, "increment destination item", err)
			}
		case isNotFound(err):
			mirror = mirrorItem(source, toID, quantity, access.ActorID())
			if err := s.itemRepo.Create(ctx, tx, mirror); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					// A concurrent transfer created the mirror first.
					return storageErr(transferOp, "create destination item", &retryableConflict{err})
				}
				return storageErr(transferOp, "create destination item", err)
			}
			result.DestinationCreated = true
		default:
			return storageErr(transferOp, "lock destination item", err)
		}

		movement := &models.StockMovement{
			ItemID:          source.ID,
			MovementType:    models.MovementTypeTransfer,
			Quantity:        quantity,
			ReferenceNumber: utils.TrimPtr(req.Reference),
			Notes:           utils.TrimPtr(req.Notes),
			WarehouseID:     fromID,
			FromWarehouseID: &fromID,
			ToWarehouseID:   &toID,
			ToItemID:        &mirror.ID,
			CreatedBy:       access.ActorID(),
		}
		if err := s.movementRepo.Create(ctx, tx, movement); err != nil {
			return storageErr(transferOp, "append ledger row", err)
		}

		today := s.now()
		decorateItem(source, today)
		decorateItem(mirror, today)
		result.Movement = *movement
		result.SourceItem = *source
		result.DestinationItem = *mirror
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mirrorItem copies the source's descriptive fields into a new item for the
// destination warehouse. Location is specific to a warehouse and left empty.
func mirrorItem(source *models.InventoryItem, warehouseID int64, quantity decimal.Decimal, actor *int64) *models.InventoryItem {
	return &models.InventoryItem{
		Name:                 source.Name,
		SKU:                  source.SKU,
		Category:             source.Category,
		EquipmentSubCategory: source.EquipmentSubCategory,
		Quantity:             quantity,
		Unit:                 source.Unit,
		ReorderPoint:         source.ReorderPoint,
		UnitPrice:            source.UnitPrice,
		SupplierID:           source.SupplierID,
		ExpiryDate:           source.ExpiryDate,
		WarehouseID:          warehouseID,
		CreatedBy:            actor,
	}
}

// retryableConflict marks a unique violation that a fresh attempt resolves.
type retryableConflict struct{ err error }

func (e *retryableConflict) Error() string   { return e.err.Error() }
func (e *retryableConflict) Unwrap() error   { return e.err }
func (e *retryableConflict) Retryable() bool { return true }
