package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/messaging"
	"stockledger/internal/models"
	"stockledger/internal/repositories"
	"stockledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest is a single-item ledger entry.
type RecordMovementRequest struct {
	Type      string           `json:"type"`
	ItemID    *int64           `json:"item_id"`
	Quantity  *decimal.Decimal `json:"quantity"`
	Reference *string          `json:"reference"`
	Notes     *string          `json:"notes"`
}

// MovementService is the append-only movement ledger.
type MovementService interface {
	RecordMovement(ctx context.Context, access models.AccessContext, req RecordMovementRequest) (*models.StockMovement, error)
	ListMovements(ctx context.Context, access models.AccessContext, filters models.MovementFilters) ([]models.StockMovement, error)
}

type movementService struct {
	db           *sql.DB
	itemRepo     repositories.ItemRepository
	movementRepo repositories.MovementRepository
	publisher    messaging.LedgerPublisher
	timeout      time.Duration
	now          func() time.Time
}

// NewMovementService creates a new instance of MovementService.
func NewMovementService(db *sql.DB, ir repositories.ItemRepository, mr repositories.MovementRepository, publisher messaging.LedgerPublisher, timeout time.Duration) MovementService {
	return &movementService{
		db:           db,
		itemRepo:     ir,
		movementRepo: mr,
		publisher:    publisher,
		timeout:      timeout,
		now:          time.Now,
	}
}

// MovementDelta returns the signed quantity change a movement type applies.
// Transfers are not applied through the ledger and report false.
func MovementDelta(movementType string, quantity decimal.Decimal) (decimal.Decimal, bool) {
	switch movementType {
	case models.MovementTypeNew, models.MovementTypeExtra:
		return quantity, true
	case models.MovementTypeScrap, models.MovementTypeFaulty:
		return quantity.Neg(), true
	default:
		return decimal.Zero, false
	}
}

func (s *movementService) RecordMovement(ctx context.Context, access models.AccessContext, req RecordMovementRequest) (*models.StockMovement, error) {
	movementType := strings.ToLower(strings.TrimSpace(req.Type))
	if movementType == models.MovementTypeTransfer {
		return nil, fmt.Errorf("%w: transfers must be recorded through the transfer endpoint", ErrValidation)
	}
	if req.ItemID == nil || req.Quantity == nil || !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: item and a positive quantity are required", ErrValidation)
	}
	delta, ok := MovementDelta(movementType, *req.Quantity)
	if !ok {
		return nil, fmt.Errorf("%w: unknown movement type %q", ErrValidation, req.Type)
	}
	if err := CheckQuantity("quantity", *req.Quantity); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		movement      *models.StockMovement
		sku           string
		quantityAfter decimal.Decimal
	)
	err := inTx(ctx, s.db, "record movement", func(tx *sql.Tx) error {
		item, err := s.itemRepo.GetByIDForUpdate(ctx, tx, *req.ItemID)
		if err != nil {
			if isNotFound(err) {
				return ErrItemNotFound
			}
			return storageErr("record movement", "lock item", err)
		}
		if !CanAccessWarehouse(access, item.WarehouseID) {
			return ErrItemNotFound
		}
		if item.Quantity.Add(delta).IsNegative() {
			return fmt.Errorf("%w: %s has %s, %s requested", ErrInsufficientQuantity, item.SKU, item.Quantity, req.Quantity)
		}
		if err := checkResultingQuantity(item.SKU, item.Quantity.Add(delta)); err != nil {
			return err
		}

		movement = &models.StockMovement{
			ItemID:          item.ID,
			MovementType:    movementType,
			Quantity:        *req.Quantity,
			ReferenceNumber: utils.TrimPtr(req.Reference),
			Notes:           utils.TrimPtr(req.Notes),
			WarehouseID:     item.WarehouseID,
			CreatedBy:       access.ActorID(),
		}
		if err := s.movementRepo.Create(ctx, tx, movement); err != nil {
			return storageErr("record movement", "append ledger row", err)
		}
		if quantityAfter, err = s.itemRepo.AdjustQuantity(ctx, tx, item.ID, delta); err != nil {
			return storageErr("record movement", "adjust item quantity", err)
		}
		sku = item.SKU
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Stock movement recorded", map[string]interface{}{
		"movement_id": movement.ID, "item_id": movement.ItemID, "type": movementType,
		"quantity": movement.Quantity.String(), "quantity_after": quantityAfter.String(),
	})
	publishLedgerEvent(ctx, s.publisher, newLedgerEvent(models.EventMovementRecorded, movement, sku, quantityAfter, s.now()))
	return movement, nil
}

func (s *movementService) ListMovements(ctx context.Context, access models.AccessContext, filters models.MovementFilters) ([]models.StockMovement, error) {
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrValidation)
	}
	if filters.MovementType != "" {
		filters.MovementType = strings.ToLower(strings.TrimSpace(filters.MovementType))
		if _, ok := MovementDelta(filters.MovementType, decimal.Zero); !ok && filters.MovementType != models.MovementTypeTransfer {
			return nil, fmt.Errorf("%w: unknown movement type %q", ErrValidation, filters.MovementType)
		}
	}
	if filters.Limit <= 0 || filters.Limit > models.MaxMovementPage {
		filters.Limit = models.MaxMovementPage
	}

	scope := VisibleWarehouseFilter(access, filters.WarehouseID)
	if scope.Empty {
		return []models.StockMovement{}, nil
	}
	filters.WarehouseID = scope.WarehouseID

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	movements, err := s.movementRepo.List(ctx, s.db, filters)
	if err != nil {
		return nil, storageErr("list movements", "", err)
	}
	visible := movements[:0]
	for _, mv := range movements {
		if CanSeeMovement(access, mv) {
			visible = append(visible, mv)
		}
	}
	return visible, nil
}
