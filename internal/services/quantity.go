package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Column precision of db/schema.sql: quantities are NUMERIC(14,3), prices
// NUMERIC(14,2).
const (
	quantityScale = 3
	priceScale    = 2
)

var (
	maxQuantity = decimal.New(1, 14-quantityScale)
	maxPrice    = decimal.New(1, 14-priceScale)
)

// checkNumeric rejects values a NUMERIC column of the given scale and upper
// bound would round or refuse, so stored quantities stay exactly what was
// requested.
func checkNumeric(field string, v decimal.Decimal, scale int32, limit decimal.Decimal) error {
	if !v.Equal(v.Round(scale)) {
		return fmt.Errorf("%w: %s allows at most %d decimal places", ErrValidation, field, scale)
	}
	if v.Abs().GreaterThanOrEqual(limit) {
		return fmt.Errorf("%w: %s must be below %s", ErrValidation, field, limit)
	}
	return nil
}

// CheckQuantity validates a stock quantity against the quantity columns.
func CheckQuantity(field string, q decimal.Decimal) error {
	return checkNumeric(field, q, quantityScale, maxQuantity)
}

// checkResultingQuantity rejects a stored quantity the column cannot hold.
func checkResultingQuantity(sku string, q decimal.Decimal) error {
	if q.GreaterThanOrEqual(maxQuantity) {
		return fmt.Errorf("%w: quantity of %s would reach %s, limit is below %s", ErrValidation, sku, q, maxQuantity)
	}
	return nil
}
