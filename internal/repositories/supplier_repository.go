package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockledger/internal/models"
)

type SupplierRepository interface {
	Create(ctx context.Context, executor SQLExecutor, supplier *models.Supplier) error
	GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.Supplier, error)
	List(ctx context.Context, executor SQLExecutor) ([]models.Supplier, error)
	Update(ctx context.Context, executor SQLExecutor, supplier *models.Supplier) error
	Delete(ctx context.Context, executor SQLExecutor, id int64) error
}

type supplierRepository struct{}

func NewSupplierRepository() SupplierRepository {
	return &supplierRepository{}
}

func scanSupplier(row scanner) (*models.Supplier, error) {
	var (
		s                              models.Supplier
		contact, phone, email, address sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &contact, &phone, &email, &address, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.ContactName = stringPtr(contact)
	s.Phone = stringPtr(phone)
	s.Email = stringPtr(email)
	s.Address = stringPtr(address)
	return &s, nil
}

func (r *supplierRepository) Create(ctx context.Context, executor SQLExecutor, supplier *models.Supplier) error {
	query := `INSERT INTO suppliers (name, contact_name, phone, email, address, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)
	          RETURNING id, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		supplier.Name, supplier.ContactName, supplier.Phone, supplier.Email, supplier.Address, time.Now().UTC(),
	).Scan(&supplier.ID, &supplier.CreatedAt, &supplier.UpdatedAt)
	if err != nil {
		return wrapDBError(err, "creating supplier")
	}
	return nil
}

func (r *supplierRepository) GetByID(ctx context.Context, executor SQLExecutor, id int64) (*models.Supplier, error) {
	query := `SELECT id, name, contact_name, phone, email, address, created_at, updated_at FROM suppliers WHERE id = $1`
	s, err := scanSupplier(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapDBError(err, fmt.Sprintf("getting supplier %d", id))
	}
	return s, nil
}

func (r *supplierRepository) List(ctx context.Context, executor SQLExecutor) ([]models.Supplier, error) {
	rows, err := executor.QueryContext(ctx,
		`SELECT id, name, contact_name, phone, email, address, created_at, updated_at FROM suppliers ORDER BY name, id`)
	if err != nil {
		return nil, wrapDBError(err, "listing suppliers")
	}
	defer rows.Close()

	suppliers := []models.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, wrapDBError(err, "scanning supplier")
		}
		suppliers = append(suppliers, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating suppliers")
	}
	return suppliers, nil
}

func (r *supplierRepository) Update(ctx context.Context, executor SQLExecutor, supplier *models.Supplier) error {
	query := `UPDATE suppliers SET name = $1, contact_name = $2, phone = $3, email = $4, address = $5, updated_at = $6
	          WHERE id = $7
	          RETURNING created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		supplier.Name, supplier.ContactName, supplier.Phone, supplier.Email, supplier.Address, time.Now().UTC(), supplier.ID,
	).Scan(&supplier.CreatedAt, &supplier.UpdatedAt)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("updating supplier %d", supplier.ID))
	}
	return nil
}

// Delete removes the supplier. Items keep their supplier_id; there is no cascade.
func (r *supplierRepository) Delete(ctx context.Context, executor SQLExecutor, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("deleting supplier %d", id))
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
