package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock status labels derived from quantity and reorder point.
const (
	StockStatusOutOfStock = "Out of Stock"
	StockStatusLow        = "Low Stock"
	StockStatusIn         = "In Stock"
)

// Expiry status labels derived from the days left until expiry.
const (
	ExpiryStatusNone     = "none"
	ExpiryStatusExpired  = "expired"
	ExpiryStatusCritical = "critical" // 7 days or fewer
	ExpiryStatusWarning  = "warning"  // 30 days or fewer
	ExpiryStatusOK       = "ok"
)

// CategoryEquipment is the only category that carries a sub-category.
const CategoryEquipment = "Equipment"

// DefaultCategories are always available; admins may add custom ones.
var DefaultCategories = []string{
	"Electronics",
	"Furniture",
	"Stationery",
	CategoryEquipment,
	"Consumables",
	"Cleaning Supplies",
	"Other",
}

// InventoryItem is a stock-keeping unit held in exactly one warehouse.
type InventoryItem struct {
	ID                   int64           `json:"id" db:"id"`
	Name                 string          `json:"name" db:"name"`
	SKU                  string          `json:"sku" db:"sku"`
	Category             string          `json:"category" db:"category"`
	EquipmentSubCategory *string         `json:"equipment_sub_category,omitempty" db:"equipment_sub_category"`
	Quantity             decimal.Decimal `json:"quantity" db:"quantity"`
	Unit                 string          `json:"unit" db:"unit"`
	ReorderPoint         decimal.Decimal `json:"reorder_point" db:"reorder_point"`
	UnitPrice            decimal.Decimal `json:"unit_price" db:"unit_price"`
	SupplierID           *int64          `json:"supplier_id,omitempty" db:"supplier_id"`
	ExpiryDate           *time.Time      `json:"expiry_date,omitempty" db:"expiry_date"`
	WarehouseID          int64           `json:"warehouse_id" db:"warehouse_id"`
	Location             *string         `json:"location,omitempty" db:"location"`
	CreatedBy            *int64          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`

	// Derived, never stored.
	Status       string `json:"status"`
	ExpiryStatus string `json:"expiry_status"`
	DaysToExpiry *int   `json:"days_to_expiry,omitempty"`

	WarehouseName string `json:"warehouse_name,omitempty"`
}

// ItemFilters narrows ListItems. Status is matched against the derived status.
type ItemFilters struct {
	WarehouseID *int64
	Search      string
	Category    string
	Status      string
}

// CustomCategory is an admin-defined category name.
type CustomCategory struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedBy *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Category is the merged view of default and custom categories.
type Category struct {
	ID     *int64 `json:"id,omitempty"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}
