package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/models"

	"github.com/shopspring/decimal"
)

// ItemRepository defines the database operations of the item store.
type ItemRepository interface {
	Create(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) error
	GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.InventoryItem, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, executor SQLExecutor, id int64) (*models.InventoryItem, error)
	// FindBySKUForUpdate looks up the item holding sku in one warehouse and locks it.
	FindBySKUForUpdate(ctx context.Context, executor SQLExecutor, warehouseID int64, sku string) (*models.InventoryItem, error)
	SKUExists(ctx context.Context, executor SQLExecutor, warehouseID int64, sku string, excludeID *int64) (bool, error)
	List(ctx context.Context, executor SQLExecutor, filters models.ItemFilters) ([]models.InventoryItem, error)
	Update(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) error
	// AdjustQuantity adds delta (which may be negative) and returns the new quantity.
	AdjustQuantity(ctx context.Context, executor SQLExecutor, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	Delete(ctx context.Context, executor SQLExecutor, id int64) error
	CountByWarehouse(ctx context.Context, executor SQLExecutor, warehouseID int64) (int, error)
}

type itemRepository struct{}

// NewItemRepository creates a new instance of ItemRepository.
func NewItemRepository() ItemRepository {
	return &itemRepository{}
}

const itemColumns = `ii.id, ii.name, ii.sku, ii.category, ii.equipment_sub_category, ii.quantity, ii.unit,
	ii.reorder_point, ii.unit_price, ii.supplier_id, ii.expiry_date, ii.warehouse_id, ii.location,
	ii.created_by, ii.created_at, ii.updated_at`

func scanItem(row scanner) (*models.InventoryItem, error) {
	var (
		item        models.InventoryItem
		subCategory sql.NullString
		supplierID  sql.NullInt64
		expiryDate  sql.NullTime
		location    sql.NullString
		createdBy   sql.NullInt64
	)
	err := row.Scan(
		&item.ID, &item.Name, &item.SKU, &item.Category, &subCategory, &item.Quantity, &item.Unit,
		&item.ReorderPoint, &item.UnitPrice, &supplierID, &expiryDate, &item.WarehouseID, &location,
		&createdBy, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.EquipmentSubCategory = stringPtr(subCategory)
	item.SupplierID = int64Ptr(supplierID)
	item.Location = stringPtr(location)
	item.CreatedBy = int64Ptr(createdBy)
	if expiryDate.Valid {
		d := expiryDate.Time
		item.ExpiryDate = &d
	}
	return &item, nil
}

func expiryArg(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *itemRepository) Create(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) error {
	query := `INSERT INTO inventory_items
	          (name, sku, category, equipment_sub_category, quantity, unit, reorder_point, unit_price,
	           supplier_id, expiry_date, warehouse_id, location, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	          RETURNING id, created_at, updated_at`
	currentTime := time.Now().UTC()

	err := executor.QueryRowContext(ctx, query,
		item.Name, item.SKU, item.Category, item.EquipmentSubCategory, item.Quantity, item.Unit,
		item.ReorderPoint, item.UnitPrice, nullInt64(item.SupplierID), expiryArg(item.ExpiryDate),
		item.WarehouseID, item.Location, nullInt64(item.CreatedBy), currentTime,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return wrapDBError(err, "creating inventory item")
	}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items ii WHERE ii.id = $1`
	item, err := scanItem(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapDBError(err, fmt.Sprintf("getting inventory item %d", id))
	}
	return item, nil
}

func (r *itemRepository) GetByIDForUpdate(ctx context.Context, executor SQLExecutor, id int64) (*models.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items ii WHERE ii.id = $1 FOR UPDATE`
	item, err := scanItem(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapDBError(err, fmt.Sprintf("locking inventory item %d", id))
	}
	return item, nil
}

func (r *itemRepository) FindBySKUForUpdate(ctx context.Context, executor SQLExecutor, warehouseID int64, sku string) (*models.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items ii
	          WHERE ii.warehouse_id = $1 AND ii.sku = $2
	          FOR UPDATE`
	item, err := scanItem(executor.QueryRowContext(ctx, query, warehouseID, sku))
	if err != nil {
		return nil, wrapDBError(err, fmt.Sprintf("locking sku %q in warehouse %d", sku, warehouseID))
	}
	return item, nil
}

func (r *itemRepository) SKUExists(ctx context.Context, executor SQLExecutor, warehouseID int64, sku string, excludeID *int64) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM inventory_items
	              WHERE warehouse_id = $1 AND sku = $2 AND ($3::BIGINT IS NULL OR id <> $3)
	          )`
	var exists bool
	if err := executor.QueryRowContext(ctx, query, warehouseID, sku, nullInt64(excludeID)).Scan(&exists); err != nil {
		return false, wrapDBError(err, "checking sku uniqueness")
	}
	return exists, nil
}

// likeEscaper makes user input match literally inside an ILIKE ... ESCAPE '\' pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *itemRepository) List(ctx context.Context, executor SQLExecutor, filters models.ItemFilters) ([]models.InventoryItem, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + itemColumns + `, COALESCE(w.name, '') AS warehouse_name
	  FROM inventory_items ii
	  LEFT JOIN warehouses w ON w.id = ii.warehouse_id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.WarehouseID != nil {
		conditions = append(conditions, fmt.Sprintf("ii.warehouse_id = $%d", argCount))
		args = append(args, *filters.WarehouseID)
		argCount++
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf(`(ii.name ILIKE $%d ESCAPE '\' OR ii.sku ILIKE $%d ESCAPE '\')`, argCount, argCount))
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		argCount++
	}
	if filters.Category != "" {
		conditions = append(conditions, fmt.Sprintf("ii.category = $%d", argCount))
		args = append(args, filters.Category)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY ii.name, ii.id")

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, wrapDBError(err, "listing inventory items")
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var (
			item          models.InventoryItem
			subCategory   sql.NullString
			supplierID    sql.NullInt64
			expiryDate    sql.NullTime
			location      sql.NullString
			createdBy     sql.NullInt64
			warehouseName string
		)
		if err := rows.Scan(
			&item.ID, &item.Name, &item.SKU, &item.Category, &subCategory, &item.Quantity, &item.Unit,
			&item.ReorderPoint, &item.UnitPrice, &supplierID, &expiryDate, &item.WarehouseID, &location,
			&createdBy, &item.CreatedAt, &item.UpdatedAt, &warehouseName,
		); err != nil {
			return nil, wrapDBError(err, "scanning inventory item")
		}
		item.EquipmentSubCategory = stringPtr(subCategory)
		item.SupplierID = int64Ptr(supplierID)
		item.Location = stringPtr(location)
		item.CreatedBy = int64Ptr(createdBy)
		if expiryDate.Valid {
			d := expiryDate.Time
			item.ExpiryDate = &d
		}
		item.WarehouseName = warehouseName
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating inventory items")
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, executor SQLExecutor, item *models.InventoryItem) error {
	query := `UPDATE inventory_items SET
	          name = $1, sku = $2, category = $3, equipment_sub_category = $4, unit = $5,
	          reorder_point = $6, unit_price = $7, supplier_id = $8, expiry_date = $9, location = $10,
	          updated_at = $11
	          WHERE id = $12
	          RETURNING updated_at`
	err := executor.QueryRowContext(ctx, query,
		item.Name, item.SKU, item.Category, item.EquipmentSubCategory, item.Unit,
		item.ReorderPoint, item.UnitPrice, nullInt64(item.SupplierID), expiryArg(item.ExpiryDate), item.Location,
		time.Now().UTC(), item.ID,
	).Scan(&item.UpdatedAt)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("updating inventory item %d", item.ID))
	}
	return nil
}

func (r *itemRepository) AdjustQuantity(ctx context.Context, executor SQLExecutor, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE inventory_items SET quantity = quantity + $1, updated_at = $2
	          WHERE id = $3
	          RETURNING quantity`
	var quantity decimal.Decimal
	if err := executor.QueryRowContext(ctx, query, delta, time.Now().UTC(), id).Scan(&quantity); err != nil {
		return decimal.Zero, wrapDBError(err, fmt.Sprintf("adjusting quantity of item %d", id))
	}
	return quantity, nil
}

func (r *itemRepository) Delete(ctx context.Context, executor SQLExecutor, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("deleting inventory item %d", id))
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepository) CountByWarehouse(ctx context.Context, executor SQLExecutor, warehouseID int64) (int, error) {
	var count int
	err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items WHERE warehouse_id = $1`, warehouseID).Scan(&count)
	if err != nil {
		return 0, wrapDBError(err, fmt.Sprintf("counting items of warehouse %d", warehouseID))
	}
	return count, nil
}
