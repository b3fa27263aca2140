package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockledger/internal/models"
)

// CategoryRepository stores admin-defined categories. The default set lives in code.
type CategoryRepository interface {
	Create(ctx context.Context, executor SQLExecutor, category *models.CustomCategory) error
	List(ctx context.Context, executor SQLExecutor) ([]models.CustomCategory, error)
	Delete(ctx context.Context, executor SQLExecutor, id int64) error
}

type categoryRepository struct{}

func NewCategoryRepository() CategoryRepository {
	return &categoryRepository{}
}

func (r *categoryRepository) Create(ctx context.Context, executor SQLExecutor, category *models.CustomCategory) error {
	query := `INSERT INTO custom_categories (name, created_by, created_at) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := executor.QueryRowContext(ctx, query, category.Name, nullInt64(category.CreatedBy), time.Now().UTC()).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("creating category %q", category.Name))
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context, executor SQLExecutor) ([]models.CustomCategory, error) {
	rows, err := executor.QueryContext(ctx, `SELECT id, name, created_by, created_at FROM custom_categories ORDER BY name`)
	if err != nil {
		return nil, wrapDBError(err, "listing categories")
	}
	defer rows.Close()

	categories := []models.CustomCategory{}
	for rows.Next() {
		var c models.CustomCategory
		var createdBy sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &createdBy, &c.CreatedAt); err != nil {
			return nil, wrapDBError(err, "scanning category")
		}
		c.CreatedBy = int64Ptr(createdBy)
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating categories")
	}
	return categories, nil
}

func (r *categoryRepository) Delete(ctx context.Context, executor SQLExecutor, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM custom_categories WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("deleting category %d", id))
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
