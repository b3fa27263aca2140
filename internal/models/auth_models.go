package models

import "time"

const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
	RoleUser    = "user"
)

// User is an operator of the ledger. WarehouseID binds role=user accounts.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	WarehouseID  *int64    `json:"warehouse_id,omitempty" db:"warehouse_id"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// AccessContext is the caller identity every ledger operation is scoped by.
// It is derived from the access token and never persisted.
type AccessContext struct {
	UserID      int64
	Username    string
	Role        string
	WarehouseID *int64
}

// IsPrivileged reports whether the caller sees every warehouse.
func (a AccessContext) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleSupport
}

// ActorID returns the user id for audit columns, nil for anonymous callers.
func (a AccessContext) ActorID() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
