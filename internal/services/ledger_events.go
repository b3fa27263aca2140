package services

import (
	"context"
	"time"

	"stockledger/internal/messaging"
	"stockledger/internal/models"
	"stockledger/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newLedgerEvent(eventType string, mv *models.StockMovement, sku string, quantityAfter decimal.Decimal, now time.Time) *models.LedgerEvent {
	return &models.LedgerEvent{
		EventID:         uuid.NewString(),
		Type:            eventType,
		MovementID:      mv.ID,
		MovementType:    mv.MovementType,
		ItemID:          mv.ItemID,
		SKU:             sku,
		ToItemID:        mv.ToItemID,
		WarehouseID:     mv.WarehouseID,
		FromWarehouseID: mv.FromWarehouseID,
		ToWarehouseID:   mv.ToWarehouseID,
		Quantity:        mv.Quantity,
		QuantityAfter:   quantityAfter,
		ActorID:         mv.CreatedBy,
		Timestamp:       now.UTC(),
	}
}

// publishLedgerEvent runs after commit; the ledger row is the source of truth
// so a publish failure is logged and swallowed.
func publishLedgerEvent(ctx context.Context, publisher messaging.LedgerPublisher, event *models.LedgerEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishLedgerEvent(context.WithoutCancel(ctx), event); err != nil {
		utils.LogWarn(err, "Failed to publish ledger event", map[string]interface{}{
			"event_id": event.EventID, "type": event.Type, "movement_id": event.MovementID,
		})
	}
}
