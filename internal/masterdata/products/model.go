package products

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BarcodeSequence names the counter row that feeds product barcodes.
const BarcodeSequence = "product_barcode"

// Product represents a catalog item.
type Product struct {
	ID              int64           `json:"id"`
	Barcode         string          `json:"barcode"`
	ItemName        string          `json:"item_name"`
	Description     string          `json:"description"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	CategoryName    string          `json:"category_name,omitempty"`
	SubCategoryID   *int64          `json:"sub_category_id,omitempty"`
	SubCategoryName string          `json:"sub_category_name,omitempty"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	MRP             decimal.Decimal `json:"mrp"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProfitMargin is mrp minus purchase price.
func (p Product) ProfitMargin() decimal.Decimal {
	return p.MRP.Sub(p.PurchasePrice)
}

// ProfitPercentage is the margin relative to the purchase price, zero when the price is zero.
func (p Product) ProfitPercentage() decimal.Decimal {
	if !p.PurchasePrice.IsPositive() {
		return decimal.Zero
	}
	return p.ProfitMargin().Div(p.PurchasePrice).Mul(decimal.NewFromInt(100)).Round(2)
}

// FormatBarcode renders the n-th barcode, e.g. A000001.
func FormatBarcode(n int64) string {
	return fmt.Sprintf("A%06d", n)
}

// SearchResult is a lookup row with the current stock quantity.
type SearchResult struct {
	ID           int64           `json:"id"`
	Barcode      string          `json:"barcode"`
	ItemName     string          `json:"item_name"`
	MRP          decimal.Decimal `json:"mrp"`
	CategoryName string          `json:"category"`
	CurrentStock int             `json:"current_stock"`
}

// PriceInfo is returned by the order line price lookup.
type PriceInfo struct {
	ProductID    int64           `json:"product_id"`
	ItemName     string          `json:"item_name"`
	MRP          decimal.Decimal `json:"mrp"`
	AvailableQty int             `json:"available_qty"`
}
