package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MovementTypeScrap    = "scrap"
	MovementTypeFaulty   = "faulty"
	MovementTypeExtra    = "extra"
	MovementTypeNew      = "new"
	MovementTypeTransfer = "transfer"
)

// MaxMovementPage caps a single ledger read.
const MaxMovementPage = 100

// StockMovement is an append-only ledger row. Quantity is always positive;
// the direction follows from MovementType. WarehouseID is the item's
// warehouse when the row was written (the source side of a transfer).
type StockMovement struct {
	ID              int64           `json:"id" db:"id"`
	ItemID          int64           `json:"item_id" db:"item_id"`
	MovementType    string          `json:"movement_type" db:"movement_type"`
	Quantity        decimal.Decimal `json:"quantity" db:"quantity"`
	ReferenceNumber *string         `json:"reference_number,omitempty" db:"reference_number"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	WarehouseID     int64           `json:"warehouse_id" db:"warehouse_id"`
	FromWarehouseID *int64          `json:"from_warehouse_id,omitempty" db:"from_warehouse_id"`
	ToWarehouseID   *int64          `json:"to_warehouse_id,omitempty" db:"to_warehouse_id"`
	ToItemID        *int64          `json:"to_item_id,omitempty" db:"to_item_id"`
	CreatedBy       *int64          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`

	// Joined, empty when the item has since been deleted.
	ItemName string `json:"item_name,omitempty"`
	ItemSKU  string `json:"item_sku,omitempty"`
}

// MovementFilters narrows ListMovements. To is inclusive.
type MovementFilters struct {
	From         *time.Time
	To           *time.Time
	WarehouseID  *int64
	MovementType string
	ItemID       *int64
	Limit        int
}

// TransferResult reports both sides of a completed transfer.
type TransferResult struct {
	Movement           StockMovement `json:"movement"`
	SourceItem         InventoryItem `json:"source_item"`
	DestinationItem    InventoryItem `json:"destination_item"`
	DestinationCreated bool          `json:"destination_created"`
}
