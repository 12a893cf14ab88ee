package orders

import (
	"github.com/shopspring/decimal"

	salesshared "github.com/odyssey-erp/odyssey-backoffice/internal/sales/shared"
)

type LineRequest struct {
	ProductID     int64            `json:"product_id" validate:"required,gt=0"`
	Quantity      int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountType  string           `json:"discount_type" validate:"omitempty,oneof=percentage flat"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
}

type CreateOrderRequest struct {
	VendorID int64         `json:"vendor_id" validate:"required,gt=0"`
	Notes    string        `json:"notes" validate:"max=2000"`
	Items    []LineRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	VendorID *int64         `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
	Notes    *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Items    *[]LineRequest `json:"items,omitempty"`
}

// lineSet validates replacement lines, which may legitimately be empty.
type lineSet struct {
	Items []LineRequest `json:"items" validate:"dive"`
}

func toLines(reqs []LineRequest) []Line {
	lines := make([]Line, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, Line{
			ProductID:     r.ProductID,
			Quantity:      r.Quantity,
			UnitPrice:     r.UnitPrice,
			DiscountType:  salesshared.DiscountType(r.DiscountType),
			DiscountValue: r.DiscountValue,
		})
	}
	return lines
}
