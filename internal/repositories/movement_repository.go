package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/models"
)

// MovementRepository is the append-only stock ledger: rows are inserted and
// read, never updated or deleted.
type MovementRepository interface {
	Create(ctx context.Context, executor SQLExecutor, movement *models.StockMovement) error
	List(ctx context.Context, executor SQLExecutor, filters models.MovementFilters) ([]models.StockMovement, error)
}

type movementRepository struct{}

// NewMovementRepository creates a new instance of MovementRepository.
func NewMovementRepository() MovementRepository {
	return &movementRepository{}
}

func (r *movementRepository) Create(ctx context.Context, executor SQLExecutor, movement *models.StockMovement) error {
	query := `INSERT INTO stock_movements
	          (item_id, movement_type, quantity, reference_number, notes, warehouse_id,
	           from_warehouse_id, to_warehouse_id, to_item_id, created_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id, created_at`
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	err := executor.QueryRowContext(ctx, query,
		movement.ItemID, movement.MovementType, movement.Quantity, movement.ReferenceNumber, movement.Notes,
		movement.WarehouseID, nullInt64(movement.FromWarehouseID), nullInt64(movement.ToWarehouseID),
		nullInt64(movement.ToItemID), nullInt64(movement.CreatedBy), movement.CreatedAt,
	).Scan(&movement.ID, &movement.CreatedAt)
	if err != nil {
		return wrapDBError(err, "creating stock movement")
	}
	return nil
}

// List returns movements newest first. A warehouse filter matches a row when
// the warehouse is its own, its transfer source or its transfer destination.
func (r *movementRepository) List(ctx context.Context, executor SQLExecutor, filters models.MovementFilters) ([]models.StockMovement, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    sm.id, sm.item_id, sm.movement_type, sm.quantity, sm.reference_number, sm.notes,
	    sm.warehouse_id, sm.from_warehouse_id, sm.to_warehouse_id, sm.to_item_id, sm.created_by, sm.created_at,
	    ii.name AS item_name, ii.sku AS item_sku
	  FROM stock_movements sm
	  LEFT JOIN inventory_items ii ON ii.id = sm.item_id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.WarehouseID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"(sm.warehouse_id = $%d OR sm.from_warehouse_id = $%d OR sm.to_warehouse_id = $%d)", argCount, argCount, argCount))
		args = append(args, *filters.WarehouseID)
		argCount++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("sm.created_at >= $%d", argCount))
		args = append(args, *filters.From)
		argCount++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("sm.created_at <= $%d", argCount))
		args = append(args, *filters.To)
		argCount++
	}
	if filters.MovementType != "" {
		conditions = append(conditions, fmt.Sprintf("sm.movement_type = $%d", argCount))
		args = append(args, filters.MovementType)
		argCount++
	}
	if filters.ItemID != nil {
		conditions = append(conditions, fmt.Sprintf("(sm.item_id = $%d OR sm.to_item_id = $%d)", argCount, argCount))
		args = append(args, *filters.ItemID)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	limit := filters.Limit
	if limit <= 0 || limit > models.MaxMovementPage {
		limit = models.MaxMovementPage
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY sm.created_at DESC, sm.id DESC LIMIT $%d", argCount))
	args = append(args, limit)

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, wrapDBError(err, "listing stock movements")
	}
	defer rows.Close()

	movements := []models.StockMovement{}
	for rows.Next() {
		var (
			mv                   models.StockMovement
			reference, notes     sql.NullString
			fromWH, toWH, toItem sql.NullInt64
			createdBy            sql.NullInt64
			itemName, itemSKU    sql.NullString
		)
		if err := rows.Scan(
			&mv.ID, &mv.ItemID, &mv.MovementType, &mv.Quantity, &reference, &notes,
			&mv.WarehouseID, &fromWH, &toWH, &toItem, &createdBy, &mv.CreatedAt,
			&itemName, &itemSKU,
		); err != nil {
			return nil, wrapDBError(err, "scanning stock movement")
		}
		mv.ReferenceNumber = stringPtr(reference)
		mv.Notes = stringPtr(notes)
		mv.FromWarehouseID = int64Ptr(fromWH)
		mv.ToWarehouseID = int64Ptr(toWH)
		mv.ToItemID = int64Ptr(toItem)
		mv.CreatedBy = int64Ptr(createdBy)
		mv.ItemName = itemName.String
		mv.ItemSKU = itemSKU.String
		movements = append(movements, mv)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating stock movements")
	}
	return movements, nil
}
