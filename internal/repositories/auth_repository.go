package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockledger/internal/models"
)

// AuthRepository defines the user-account database operations.
type AuthRepository interface {
	CreateUser(ctx context.Context, executor SQLExecutor, user *models.User, hashedPassword string) error
	// FindUserByUsername returns the user together with the stored password hash.
	FindUserByUsername(ctx context.Context, executor SQLExecutor, username string) (*models.User, string, error)
	FindUserByID(ctx context.Context, executor SQLExecutor, userID int64) (*models.User, error)
	ListUsers(ctx context.Context, executor SQLExecutor) ([]models.User, error)
	// SetUserWarehouse binds a user to a warehouse.
	SetUserWarehouse(ctx context.Context, executor SQLExecutor, userID, warehouseID int64) error
}

type authRepository struct{}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository() AuthRepository {
	return &authRepository{}
}

const userColumns = `id, username, password_hash, full_name, role, warehouse_id, is_active, created_at, updated_at`

func scanUser(row scanner) (*models.User, string, error) {
	var (
		user        models.User
		hash        string
		fullName    sql.NullString
		warehouseID sql.NullInt64
	)
	if err := row.Scan(&user.ID, &user.Username, &hash, &fullName, &user.Role, &warehouseID,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, "", err
	}
	user.FullName = stringPtr(fullName)
	user.WarehouseID = int64Ptr(warehouseID)
	return &user, hash, nil
}

func (r *authRepository) CreateUser(ctx context.Context, executor SQLExecutor, user *models.User, hashedPassword string) error {
	query := `INSERT INTO users (username, password_hash, full_name, role, warehouse_id, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	          RETURNING id, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		user.Username, hashedPassword, user.FullName, user.Role, nullInt64(user.WarehouseID), user.IsActive, time.Now().UTC(),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("creating user %q", user.Username))
	}
	return nil
}

func (r *authRepository) FindUserByUsername(ctx context.Context, executor SQLExecutor, username string) (*models.User, string, error) {
	user, hash, err := scanUser(executor.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, "", wrapDBError(err, fmt.Sprintf("finding user by username %s", username))
	}
	return user, hash, nil
}

func (r *authRepository) FindUserByID(ctx context.Context, executor SQLExecutor, userID int64) (*models.User, error) {
	user, _, err := scanUser(executor.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, wrapDBError(err, fmt.Sprintf("finding user by ID %d", userID))
	}
	return user, nil
}

func (r *authRepository) ListUsers(ctx context.Context, executor SQLExecutor) ([]models.User, error) {
	rows, err := executor.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, wrapDBError(err, "listing users")
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, _, err := scanUser(rows)
		if err != nil {
			return nil, wrapDBError(err, "scanning user")
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating users")
	}
	return users, nil
}

func (r *authRepository) SetUserWarehouse(ctx context.Context, executor SQLExecutor, userID, warehouseID int64) error {
	result, err := executor.ExecContext(ctx,
		`UPDATE users SET warehouse_id = $1, updated_at = $2 WHERE id = $3`, warehouseID, time.Now().UTC(), userID)
	if err != nil {
		return wrapDBError(err, fmt.Sprintf("binding user %d to warehouse %d", userID, warehouseID))
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
