package orders

import (
	"time"

	"github.com/shopspring/decimal"

	salesshared "github.com/odyssey-erp/odyssey-backoffice/internal/sales/shared"
)

// Order is a vendor order whose items were reserved against stock on creation.
type Order struct {
	ID          int64           `json:"id"`
	VendorID    int64           `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem is one product line of an Order.
type OrderItem struct {
	ID            int64                    `json:"id"`
	OrderID       int64                    `json:"order_id"`
	ProductID     int64                    `json:"product_id"`
	ProductName   string                   `json:"product_name"`
	Barcode       string                   `json:"barcode,omitempty"`
	Quantity      int                      `json:"quantity"`
	UnitPrice     decimal.Decimal          `json:"unit_price"`
	DiscountType  salesshared.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal          `json:"discount_value"`
	salesshared.LineAmounts
}

// Compute fills the derived line amounts.
func (i *OrderItem) Compute() {
	i.DiscountType = salesshared.NormalizeDiscountType(i.DiscountType)
	i.LineAmounts = salesshared.CalculateLine(i.Quantity, i.UnitPrice, i.DiscountType, i.DiscountValue)
}

// Line is a requested order line. A nil UnitPrice takes the product's MRP.
type Line struct {
	ProductID     int64
	Quantity      int
	UnitPrice     *decimal.Decimal
	DiscountType  salesshared.DiscountType
	DiscountValue decimal.Decimal
}

// CreateInput carries the fields of a new order.
type CreateInput struct {
	VendorID       int64
	Notes          string
	Lines          []Line
	IdempotencyKey string
}

// UpdateInput carries changed fields. Nil Lines keeps the current items;
// a non-nil empty slice clears them and restores their stock.
type UpdateInput struct {
	VendorID *int64
	Notes    *string
	Lines    *[]Line
}

// ListFilter narrows order listings.
type ListFilter struct {
	VendorID int64
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// RestoredLine reports stock returned by an order deletion.
type RestoredLine struct {
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
	StockAfter int   `json:"stock_after"`
}

// DeleteResult lists the stock restored by Delete.
type DeleteResult struct {
	OrderID  int64          `json:"order_id"`
	Restored []RestoredLine `json:"restored"`
}

// Invoice is an order with its computed totals.
type Invoice struct {
	Order         Order           `json:"order"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	IssuedAt      time.Time       `json:"issued_at"`
}

// NewInvoice sums the order's line amounts.
func NewInvoice(o Order, at time.Time) Invoice {
	inv := Invoice{Order: o, Subtotal: decimal.Zero, DiscountTotal: decimal.Zero, IssuedAt: at}
	for _, item := range o.Items {
		inv.Subtotal = inv.Subtotal.Add(item.Subtotal)
		inv.DiscountTotal = inv.DiscountTotal.Add(item.DiscountAmount)
	}
	inv.Total = inv.Subtotal.Sub(inv.DiscountTotal)
	return inv
}

// ProductRef is the catalog data an order line needs.
type ProductRef struct {
	ID   int64
	Name string
	MRP  decimal.Decimal
}
