package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCalculateLine(t *testing.T) {
	price := decimal.RequireFromString("12.50")

	flat := CalculateLine(4, price, DiscountFlat, decimal.RequireFromString("5"))
	require.Equal(t, "50", flat.Subtotal.String())
	require.Equal(t, "45", flat.Total.String())

	pct := CalculateLine(3, decimal.RequireFromString("9.99"), DiscountPercentage, decimal.RequireFromString("10"))
	require.Equal(t, "29.97", pct.Subtotal.String())
	require.Equal(t, "3", pct.DiscountAmount.String())
	require.Equal(t, "26.97", pct.Total.String())

	none := CalculateLine(2, price, "", decimal.Zero)
	require.True(t, none.Total.Equal(decimal.RequireFromString("25")))

	require.Equal(t, "71.97", SumTotals([]LineAmounts{flat, pct}).String())
}

func TestValidateLine(t *testing.T) {
	price := decimal.RequireFromString("10")
	require.NoError(t, ValidateLine(2, price, DiscountFlat, decimal.RequireFromString("20")))
	require.ErrorIs(t, ValidateLine(2, price, DiscountFlat, decimal.RequireFromString("20.01")), ErrDiscountExceedsTotal)
	require.ErrorIs(t, ValidateLine(2, price, DiscountPercentage, decimal.RequireFromString("101")), ErrPercentageOutOfRange)
	require.ErrorIs(t, ValidateLine(2, price, DiscountFlat, decimal.RequireFromString("-1")), ErrNegativeDiscount)
	require.ErrorIs(t, ValidateLine(2, price, "bulk", decimal.Zero), ErrUnknownDiscountType)
	require.ErrorIs(t, ValidateLine(2, decimal.RequireFromString("-1"), DiscountFlat, decimal.Zero), ErrNegativePrice)
}
