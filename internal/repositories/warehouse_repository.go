package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockledger/internal/models"
)

// WarehouseRepository defines the database operations of the warehouse registry.
type WarehouseRepository interface {
	Create(ctx context.Context, executor SQLExecutor, warehouse *models.Warehouse) error
	GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.Warehouse, error)
	List(ctx context.Context, executor SQLExecutor) ([]models.Warehouse, error)
	Update(ctx context.Context, executor SQLExecutor, warehouse *models.Warehouse) error
	Delete(ctx context.Context, executor SQLExecutor, id int64) error
}

type warehouseRepository struct{}

// NewWarehouseRepository creates a new instance of WarehouseRepository.
func NewWarehouseRepository() WarehouseRepository {
	return &warehouseRepository{}
}

const warehouseColumns = `id, name, branch, address, manager, phone, email, status, assigned_user_id, created_at, updated_at`

func scanWarehouse(row scanner) (*models.Warehouse, error) {
	var (
		w                              models.Warehouse
		address, manager, phone, email sql.NullString
		assignedUserID                 sql.NullInt64
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Branch, &address, &manager, &phone, &email, &w.Status,
		&assignedUserID, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.Address = stringPtr(address)
	w.Manager = stringPtr(manager)
	w.Phone = stringPtr(phone)
	w.Email = stringPtr(email)
	w.AssignedUserID = int64Ptr(assignedUserID)
	return &w, nil
}

func (r *warehouseRepository) Create(ctx context.Context, executor SQLExecutor, warehouse *models.Warehouse) error {
	query := `INSERT INTO warehouses
	          (name, branch, address, manager, phone, email, status, assigned_user_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	          RETURNING id, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		warehouse.Name, warehouse.Branch, warehouse.Address, warehouse.Manager, warehouse.Phone,
		warehouse.Email, warehouse.Status, nullInt64(warehouse.AssignedUserID), time.Now().UTC(),
	).Scan(&warehouse.ID, &warehouse.CreatedAt, &warehouse.UpdatedAt)
	if err != nil {
		return wrapDBError(err, "creating warehouse")
	}
	return nil
}

func (r *warehouseRepository) GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1`
	w, err := scanWarehouse(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapDBError(err, fmt.Sprintf("getting warehouse %d", id))
	}
	return w, nil
}

func (r *warehouseRepository) List(ctx context.Context, executor SQLExecutor) ([]models.Warehouse, error) {
	rows, err := executor.QueryContext(ctx, `SELECT `+warehouseColumns+` FROM warehouses ORDER BY name, id`)
	if err != nil {
		return nil, wrapDBError(err, "listing warehouses")
	}
	defer rows.Close()

	warehouses := []models.Warehouse{}
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, wrapDBError(err, "scanning warehouse")
		}
		warehouses = append(warehouses, *w)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating warehouses")
	}
	return warehouses, nil
}

func (r *warehouseRepository) Update(ctx context.Context, executor SQLExecutor, warehouse *models.Warehouse) error {
	query := `UPDATE warehouses SET
	          name = $1, branch = $2, address = $3, manager = $4, phone = $5, email = $6,
	          status = $7, assigned_user_id = $8, updated_at = $9
	          WHERE id = $10
	          RETURNING created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		warehouse.Name, warehouse.Branch, warehouse.Address, warehouse.Manager, warehouse.Phone,
		warehouse.Email, warehouse.Status, nullInt64(warehouse.AssignedUserID), time.Now().UTC(), warehouse.ID,
	).Scan(&warehouse.CreatedAt, &warehouse.UpdatedAt)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("updating warehouse %d", warehouse.ID))
	}
	return nil
}

func (r *warehouseRepository) Delete(ctx context.Context, executor SQLExecutor, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("deleting warehouse %d", id))
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
