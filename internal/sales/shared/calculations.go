// Package shared holds line arithmetic used by order documents.
package shared

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a line discount is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrUnknownDiscountType  = errors.New("discount type must be percentage or flat")
	ErrNegativeDiscount     = errors.New("discount value must not be negative")
	ErrPercentageOutOfRange = errors.New("percentage discount must not exceed 100")
	ErrDiscountExceedsTotal = errors.New("flat discount exceeds line subtotal")
	ErrNegativePrice        = errors.New("unit price must not be negative")
)

// NormalizeDiscountType defaults an empty type to flat.
func NormalizeDiscountType(t DiscountType) DiscountType {
	if t == "" {
		return DiscountFlat
	}
	return t
}

// LineAmounts are the derived values of an order line.
type LineAmounts struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"line_total"`
}

// CalculateLine computes subtotal, discount and total rounded to cents.
func CalculateLine(quantity int, unitPrice decimal.Decimal, discountType DiscountType, discountValue decimal.Decimal) LineAmounts {
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	var discount decimal.Decimal
	switch NormalizeDiscountType(discountType) {
	case DiscountPercentage:
		discount = subtotal.Mul(discountValue).Div(hundred).Round(2)
	default:
		discount = discountValue.Round(2)
	}
	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          subtotal.Sub(discount),
	}
}

// ValidateLine checks price and discount against the line subtotal.
func ValidateLine(quantity int, unitPrice decimal.Decimal, discountType DiscountType, discountValue decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return ErrNegativePrice
	}
	if discountValue.IsNegative() {
		return ErrNegativeDiscount
	}
	switch NormalizeDiscountType(discountType) {
	case DiscountPercentage:
		if discountValue.GreaterThan(hundred) {
			return ErrPercentageOutOfRange
		}
	case DiscountFlat:
		if discountValue.GreaterThan(unitPrice.Mul(decimal.NewFromInt(int64(quantity)))) {
			return ErrDiscountExceedsTotal
		}
	default:
		return ErrUnknownDiscountType
	}
	return nil
}

// SumTotals adds up line totals.
func SumTotals(lines []LineAmounts) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return total
}
