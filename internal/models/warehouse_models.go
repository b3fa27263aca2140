package models

import "time"

const (
	WarehouseStatusActive   = "active"
	WarehouseStatusInactive = "inactive"
)

// Warehouse is a named physical location. AssignedUserID is a back-reference
// only; the user's own warehouse_id is the binding used for access scoping.
type Warehouse struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Branch         string    `json:"branch" db:"branch"`
	Address        *string   `json:"address,omitempty" db:"address"`
	Manager        *string   `json:"manager,omitempty" db:"manager"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	Email          *string   `json:"email,omitempty" db:"email"`
	Status         string    `json:"status" db:"status"`
	AssignedUserID *int64    `json:"assigned_user_id,omitempty" db:"assigned_user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Supplier is referenced optionally by inventory items.
type Supplier struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ContactName *string   `json:"contact_name,omitempty" db:"contact_name"`
	Phone       *string   `json:"phone,omitempty" db:"phone"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Address     *string   `json:"address,omitempty" db:"address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
