package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	ProductName   string
	Barcode       string
	Quantity      int
	UnitPrice     decimal.Decimal
	Subtotal      decimal.Decimal
	DiscountType  string
	DiscountValue decimal.Decimal
	Total         decimal.Decimal
}

type order struct {
	ID         int64
	VendorName string
	CreatedAt  time.Time
	Notes      string
	Items      []line
}

type invoice struct {
	Order         order
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
	IssuedAt      time.Time
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderInvoice(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	d := decimal.RequireFromString
	html, err := engine.RenderString("invoice.html", TemplateData{Title: "Invoice 12", Data: invoice{
		Order: order{ID: 12, VendorName: "Acme <Ltd>", CreatedAt: time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC), Items: []line{
			{ProductName: "Tea", Quantity: 2, UnitPrice: d("1500"), Subtotal: d("3000"), DiscountType: "percentage", DiscountValue: d("10"), Total: d("2700")},
		}},
		Subtotal:      d("3000"),
		DiscountTotal: d("300"),
		Total:         d("2700"),
	}})
	require.NoError(t, err)
	assert.Contains(t, html, "Invoice #12")
	assert.Contains(t, html, "Acme &lt;Ltd&gt;")
	assert.Contains(t, html, "3,000.00")
	assert.Contains(t, html, "10%")
	assert.Contains(t, html, "09 Mar 2025 10:00")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatMoney(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0.00", FormatMoney(decimal.Zero))
}
