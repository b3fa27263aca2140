package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventMovementRecorded = "movement.recorded"
	EventStockTransferred = "stock.transferred"
)

// LedgerEvent is published after a ledger write commits.
type LedgerEvent struct {
	EventID         string          `json:"event_id"`
	Type            string          `json:"type"`
	MovementID      int64           `json:"movement_id"`
	MovementType    string          `json:"movement_type"`
	ItemID          int64           `json:"item_id"`
	SKU             string          `json:"sku"`
	ToItemID        *int64          `json:"to_item_id,omitempty"`
	WarehouseID     int64           `json:"warehouse_id"`
	FromWarehouseID *int64          `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *int64          `json:"to_warehouse_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuantityAfter   decimal.Decimal `json:"quantity_after"`
	ActorID         *int64          `json:"actor_id,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}
