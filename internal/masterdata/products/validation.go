package products

import (
	"strings"

	"github.com/shopspring/decimal"

	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var maxPrice = decimal.RequireFromString("99999999.99")

func normalize(p Product) Product {
	p.ItemName = strings.TrimSpace(p.ItemName)
	p.Description = strings.TrimSpace(p.Description)
	p.PurchasePrice = p.PurchasePrice.Round(2)
	p.MRP = p.MRP.Round(2)
	return p
}

func validate(p Product) error {
	verr := &internalShared.ValidationError{}
	if p.ItemName == "" {
		verr.Add("item_name", "item name is required")
	} else if len(p.ItemName) > 200 {
		verr.Add("item_name", "item name must be at most 200 characters")
	}
	checkPrice(verr, "purchase_price", p.PurchasePrice)
	checkPrice(verr, "mrp", p.MRP)
	return verr.Err()
}

func checkPrice(verr *internalShared.ValidationError, field string, v decimal.Decimal) {
	switch {
	case v.IsNegative():
		verr.Add(field, "must not be negative")
	case v.GreaterThan(maxPrice):
		verr.Add(field, "exceeds the maximum price")
	}
}
