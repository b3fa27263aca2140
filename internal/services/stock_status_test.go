package services

import (
	"testing"
	"time"

	"stockledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStockStatus(t *testing.T) {
	reorder := decimal.NewFromInt(10)
	cases := []struct {
		qty  int64
		want string
	}{
		{0, models.StockStatusOutOfStock},
		{-1, models.StockStatusOutOfStock},
		{5, models.StockStatusLow},
		{10, models.StockStatusLow},
		{11, models.StockStatusIn},
		{50, models.StockStatusIn},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StockStatus(decimal.NewFromInt(tc.qty), reorder), "quantity %d", tc.qty)
	}
}

func TestStockStatus_FractionalQuantity(t *testing.T) {
	assert.Equal(t, models.StockStatusLow, StockStatus(decimal.RequireFromString("0.5"), decimal.NewFromInt(1)))
	assert.Equal(t, models.StockStatusIn, StockStatus(decimal.RequireFromString("0.5"), decimal.Zero))
}

func TestExpiryStatus(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
		return &d
	}

	status, days := ExpiryStatus(nil, today)
	assert.Equal(t, models.ExpiryStatusNone, status)
	assert.Nil(t, days)

	cases := []struct {
		offset int
		want   string
	}{
		{-1, models.ExpiryStatusExpired},
		{0, models.ExpiryStatusCritical},
		{7, models.ExpiryStatusCritical},
		{8, models.ExpiryStatusWarning},
		{30, models.ExpiryStatusWarning},
		{31, models.ExpiryStatusOK},
	}
	for _, tc := range cases {
		status, days := ExpiryStatus(day(tc.offset), today)
		assert.Equal(t, tc.want, status, "offset %d", tc.offset)
		if assert.NotNil(t, days) {
			assert.Equal(t, tc.offset, *days)
		}
	}
}
