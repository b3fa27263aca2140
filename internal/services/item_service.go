package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"stockledger/internal/models"
	"stockledger/internal/repositories"
	"stockledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// --- Item DTOs ---

// CreateItemRequest creates an item. Quantity is the opening balance and is
// recorded in the ledger as a "new" movement.
type CreateItemRequest struct {
	Name                 string           `json:"name"`
	SKU                  *string          `json:"sku"`
	Category             string           `json:"category"`
	EquipmentSubCategory *string          `json:"equipment_sub_category"`
	Quantity             *decimal.Decimal `json:"quantity"`
	Unit                 string           `json:"unit"`
	ReorderPoint         *decimal.Decimal `json:"reorder_point"`
	UnitPrice            *decimal.Decimal `json:"unit_price"`
	SupplierID           *int64           `json:"supplier_id"`
	ExpiryDate           *string          `json:"expiry_date"` // YYYY-MM-DD
	WarehouseID          *int64           `json:"warehouse_id"`
	Location             *string          `json:"location"`
}

// UpdateItemRequest fully replaces the descriptive fields. Quantity and
// warehouse are owned by the ledger and the transfer orchestrator.
type UpdateItemRequest struct {
	Name                 string           `json:"name"`
	SKU                  *string          `json:"sku"`
	Category             string           `json:"category"`
	EquipmentSubCategory *string          `json:"equipment_sub_category"`
	Unit                 string           `json:"unit"`
	ReorderPoint         *decimal.Decimal `json:"reorder_point"`
	UnitPrice            *decimal.Decimal `json:"unit_price"`
	SupplierID           *int64           `json:"supplier_id"`
	ExpiryDate           *string          `json:"expiry_date"`
	Location             *string          `json:"location"`
}

// ItemService is the item store.
type ItemService interface {
	ListItems(ctx context.Context, access models.AccessContext, filters models.ItemFilters) ([]models.InventoryItem, error)
	GetItem(ctx context.Context, access models.AccessContext, itemID int64) (*models.InventoryItem, error)
	CreateItem(ctx context.Context, access models.AccessContext, req CreateItemRequest) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, access models.AccessContext, itemID int64, req UpdateItemRequest) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, access models.AccessContext, itemID int64) error
}

type itemService struct {
	db            *sql.DB
	itemRepo      repositories.ItemRepository
	movementRepo  repositories.MovementRepository
	warehouseRepo repositories.WarehouseRepository
	categoryRepo  repositories.CategoryRepository
	timeout       time.Duration
	now           func() time.Time
}

// NewItemService creates a new instance of ItemService.
func NewItemService(
	db *sql.DB,
	ir repositories.ItemRepository,
	mr repositories.MovementRepository,
	wr repositories.WarehouseRepository,
	cr repositories.CategoryRepository,
	timeout time.Duration,
) ItemService {
	return &itemService{
		db:            db,
		itemRepo:      ir,
		movementRepo:  mr,
		warehouseRepo: wr,
		categoryRepo:  cr,
		timeout:       timeout,
		now:           time.Now,
	}
}

// skuAttempts bounds the search for a free auto-generated SKU.
const skuAttempts = 5

// GenerateSKU builds UPPER(category[:3]) + "-" + the last six digits of the
// unix-millisecond timestamp.
func GenerateSKU(category string, now time.Time) string {
	prefix := strings.TrimSpace(category)
	if utf8.RuneCountInString(prefix) > 3 {
		prefix = string([]rune(prefix)[:3])
	}
	millis := fmt.Sprintf("%06d", now.UnixMilli()%1_000_000)
	return strings.ToUpper(prefix) + "-" + millis
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func (s *itemService) ListItems(ctx context.Context, access models.AccessContext, filters models.ItemFilters) ([]models.InventoryItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	scope := VisibleWarehouseFilter(access, filters.WarehouseID)
	if scope.Empty {
		return []models.InventoryItem{}, nil
	}
	filters.WarehouseID = scope.WarehouseID

	items, err := s.itemRepo.List(ctx, s.db, filters)
	if err != nil {
		return nil, storageErr("list items", "", err)
	}

	today := s.now()
	wantStatus := normalizeStatus(filters.Status)
	result := make([]models.InventoryItem, 0, len(items))
	for i := range items {
		decorateItem(&items[i], today)
		if wantStatus != "" && normalizeStatus(items[i].Status) != wantStatus {
			continue
		}
		result = append(result, items[i])
	}
	return result, nil
}

func (s *itemService) GetItem(ctx context.Context, access models.AccessContext, itemID int64) (*models.InventoryItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	item, err := s.itemRepo.GetByID(ctx, s.db, itemID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, storageErr("get item", "", err)
	}
	if !CanAccessWarehouse(access, item.WarehouseID) {
		return nil, ErrItemNotFound
	}
	decorateItem(item, s.now())
	return item, nil
}

// validateCategory accepts a default category or an admin-defined one and
// returns its canonical spelling.
func (s *itemService) validateCategory(ctx context.Context, executor repositories.SQLExecutor, category string) (string, error) {
	category = strings.TrimSpace(category)
	for _, c := range models.DefaultCategories {
		if strings.EqualFold(c, category) {
			return c, nil
		}
	}
	custom, err := s.categoryRepo.List(ctx, executor)
	if err != nil {
		return "", storageErr("validate category", "", err)
	}
	for _, c := range custom {
		if strings.EqualFold(c.Name, category) {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, category)
}

type itemFields struct {
	name, category, unit    string
	subCategory, location   *string
	reorderPoint, unitPrice decimal.Decimal
	expiry                  *time.Time
}

func parseItemFields(name, category, unit string, subCategory, location *string, reorderPoint, unitPrice *decimal.Decimal, expiry *string) (*itemFields, error) {
	f := &itemFields{
		name:        strings.TrimSpace(name),
		category:    strings.TrimSpace(category),
		unit:        strings.TrimSpace(unit),
		location:    utils.TrimPtr(location),
		subCategory: utils.TrimPtr(subCategory),
	}
	if f.unit == "" {
		f.unit = "pcs"
	}
	if reorderPoint != nil {
		if reorderPoint.IsNegative() {
			return nil, fmt.Errorf("%w: reorder point cannot be negative", ErrValidation)
		}
		if err := CheckQuantity("reorder point", *reorderPoint); err != nil {
			return nil, err
		}
		f.reorderPoint = *reorderPoint
	}
	if unitPrice != nil {
		if unitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
		}
		if err := checkNumeric("unit price", *unitPrice, priceScale, maxPrice); err != nil {
			return nil, err
		}
		f.unitPrice = *unitPrice
	}
	if expiry != nil {
		d, err := utils.ParseDate(strings.TrimSpace(*expiry))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		f.expiry = d
	}
	return f, nil
}

func (f *itemFields) applyTo(item *models.InventoryItem) {
	item.Name = f.name
	item.Category = f.category
	item.Unit = f.unit
	item.ReorderPoint = f.reorderPoint
	item.UnitPrice = f.unitPrice
	item.ExpiryDate = f.expiry
	item.Location = f.location
	item.EquipmentSubCategory = nil
	if f.category == models.CategoryEquipment {
		item.EquipmentSubCategory = f.subCategory
	}
}

func (s *itemService) CreateItem(ctx context.Context, access models.AccessContext, req CreateItemRequest) (*models.InventoryItem, error) {
	if utils.IsEmpty(req.Name) || utils.IsEmpty(req.Category) || req.WarehouseID == nil {
		return nil, fmt.Errorf("%w: name, category and warehouse are required", ErrValidation)
	}
	if err := requireWarehouseAccess(access, *req.WarehouseID); err != nil {
		return nil, err
	}
	quantity := decimal.Zero
	if req.Quantity != nil {
		if req.Quantity.IsNegative() {
			return nil, fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
		}
		if err := CheckQuantity("quantity", *req.Quantity); err != nil {
			return nil, err
		}
		quantity = *req.Quantity
	}
	fields, err := parseItemFields(req.Name, req.Category, req.Unit, req.EquipmentSubCategory, req.Location,
		req.ReorderPoint, req.UnitPrice, req.ExpiryDate)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	item := &models.InventoryItem{
		Quantity:    quantity,
		SupplierID:  req.SupplierID,
		WarehouseID: *req.WarehouseID,
		CreatedBy:   access.ActorID(),
	}

	err = inTx(ctx, s.db, "create item", func(tx *sql.Tx) error {
		if fields.category, err = s.validateCategory(ctx, tx, fields.category); err != nil {
			return err
		}
		fields.applyTo(item)

		warehouse, err := s.warehouseRepo.GetByID(ctx, tx, item.WarehouseID)
		if err != nil {
			if isNotFound(err) {
				return ErrWarehouseNotFound
			}
			return storageErr("create item", "load warehouse", err)
		}
		if warehouse.Status != models.WarehouseStatusActive {
			return ErrWarehouseInactive
		}

		if sku := utils.TrimPtr(req.SKU); sku != nil {
			exists, err := s.itemRepo.SKUExists(ctx, tx, item.WarehouseID, *sku, nil)
			if err != nil {
				return storageErr("create item", "check sku", err)
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrSKUConflict, *sku)
			}
			item.SKU = *sku
		} else if item.SKU, err = s.freeGeneratedSKU(ctx, tx, item.Category, item.WarehouseID); err != nil {
			return err
		}

		if err := s.itemRepo.Create(ctx, tx, item); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: %s", ErrSKUConflict, item.SKU)
			}
			return storageErr("create item", "insert item", err)
		}

		if quantity.IsPositive() {
			opening := &models.StockMovement{
				ItemID:       item.ID,
				MovementType: models.MovementTypeNew,
				Quantity:     quantity,
				Notes:        utils.NewNullString("opening balance"),
				WarehouseID:  item.WarehouseID,
				CreatedBy:    access.ActorID(),
			}
			if err := s.movementRepo.Create(ctx, tx, opening); err != nil {
				return storageErr("create item", "record opening balance", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Inventory item created", map[string]interface{}{
		"item_id": item.ID, "sku": item.SKU, "warehouse_id": item.WarehouseID,
	})
	decorateItem(item, s.now())
	return item, nil
}

// freeGeneratedSKU generates a time based SKU that is unused in the warehouse.
func (s *itemService) freeGeneratedSKU(ctx context.Context, executor repositories.SQLExecutor, category string, warehouseID int64) (string, error) {
	now := s.now()
	for i := 0; i < skuAttempts; i++ {
		candidate := GenerateSKU(category, now.Add(time.Duration(i)*time.Millisecond))
		exists, err := s.itemRepo.SKUExists(ctx, executor, warehouseID, candidate, nil)
		if err != nil {
			return "", storageErr("create item", "check generated sku", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: could not generate a free sku, supply one explicitly", ErrSKUConflict)
}

func (s *itemService) UpdateItem(ctx context.Context, access models.AccessContext, itemID int64, req UpdateItemRequest) (*models.InventoryItem, error) {
	if utils.IsEmpty(req.Name) || utils.IsEmpty(req.Category) {
		return nil, fmt.Errorf("%w: name and category are required", ErrValidation)
	}
	fields, err := parseItemFields(req.Name, req.Category, req.Unit, req.EquipmentSubCategory, req.Location,
		req.ReorderPoint, req.UnitPrice, req.ExpiryDate)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var item *models.InventoryItem
	err = inTx(ctx, s.db, "update item", func(tx *sql.Tx) error {
		var err error
		item, err = s.itemRepo.GetByIDForUpdate(ctx, tx, itemID)
		if err != nil {
			if isNotFound(err) {
				return ErrItemNotFound
			}
			return storageErr("update item", "load item", err)
		}
		if !CanAccessWarehouse(access, item.WarehouseID) {
			return ErrItemNotFound
		}

		if fields.category, err = s.validateCategory(ctx, tx, fields.category); err != nil {
			return err
		}
		fields.applyTo(item)
		item.SupplierID = req.SupplierID

		if sku := utils.TrimPtr(req.SKU); sku != nil && *sku != item.SKU {
			exists, err := s.itemRepo.SKUExists(ctx, tx, item.WarehouseID, *sku, &item.ID)
			if err != nil {
				return storageErr("update item", "check sku", err)
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrSKUConflict, *sku)
			}
			item.SKU = *sku
		}

		if err := s.itemRepo.Update(ctx, tx, item); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: %s", ErrSKUConflict, item.SKU)
			}
			if isNotFound(err) {
				return ErrItemNotFound
			}
			return storageErr("update item", "write item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	decorateItem(item, s.now())
	return item, nil
}

// DeleteItem hard-deletes the item. Its ledger rows stay; they keep the
// item id as a dangling reference.
func (s *itemService) DeleteItem(ctx context.Context, access models.AccessContext, itemID int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return inTx(ctx, s.db, "delete item", func(tx *sql.Tx) error {
		item, err := s.itemRepo.GetByIDForUpdate(ctx, tx, itemID)
		if err != nil {
			if isNotFound(err) {
				return ErrItemNotFound
			}
			return storageErr("delete item", "load item", err)
		}
		if !CanAccessWarehouse(access, item.WarehouseID) {
			return ErrItemNotFound
		}
		if err := s.itemRepo.Delete(ctx, tx, itemID); err != nil {
			if isNotFound(err) {
				return ErrItemNotFound
			}
			return storageErr("delete item", "delete item", err)
		}
		utils.LogInfo("Inventory item deleted", map[string]interface{}{"item_id": itemID, "sku": item.SKU})
		return nil
	})
}
