package services

import (
	"math"
	"time"

	"stockledger/internal/models"

	"github.com/shopspring/decimal"
)

// StockStatus derives the stock label from quantity and reorder point.
func StockStatus(quantity, reorderPoint decimal.Decimal) string {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return models.StockStatusOutOfStock
	case quantity.LessThanOrEqual(reorderPoint):
		return models.StockStatusLow
	default:
		return models.StockStatusIn
	}
}

// DaysUntil counts whole calendar days from today to date, negative once past.
func DaysUntil(date, today time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(d.Sub(t).Hours() / 24))
}

// ExpiryStatus derives the expiry label: expired, then 7 and 30 day warnings.
func ExpiryStatus(expiry *time.Time, today time.Time) (string, *int) {
	if expiry == nil {
		return models.ExpiryStatusNone, nil
	}
	days := DaysUntil(*expiry, today)
	switch {
	case days < 0:
		return models.ExpiryStatusExpired, &days
	case days <= 7:
		return models.ExpiryStatusCritical, &days
	case days <= 30:
		return models.ExpiryStatusWarning, &days
	default:
		return models.ExpiryStatusOK, &days
	}
}

// decorateItem fills the derived, never-stored fields.
func decorateItem(item *models.InventoryItem, today time.Time) {
	item.Status = StockStatus(item.Quantity, item.ReorderPoint)
	item.ExpiryStatus, item.DaysToExpiry = ExpiryStatus(item.ExpiryDate, today)
}
