package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard holds the headline counters.
type Dashboard struct {
	TotalOrders     int             `json:"total_orders"`
	TotalOrderValue decimal.Decimal `json:"total_order_value"`
	ActiveProducts  int             `json:"active_products"`
	LowStockCount   int             `json:"low_stock_count"`
}

// SalesFilter scopes the sales report. End is inclusive by date.
type SalesFilter struct {
	Start    *time.Time
	End      *time.Time
	VendorID int64
}

// SalesSummary aggregates the filtered orders.
type SalesSummary struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
}

// ProductSales ranks products by revenue.
type ProductSales struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// VendorSales sums orders per vendor.
type VendorSales struct {
	VendorID int64           `json:"vendor_id"`
	Name     string          `json:"name"`
	Orders   int             `json:"orders"`
	Total    decimal.Decimal `json:"total"`
}

// MonthPoint is one month of the sales trend, Month formatted YYYY-MM.
type MonthPoint struct {
	Month  string          `json:"month"`
	Orders int             `json:"orders"`
	Total  decimal.Decimal `json:"total"`
}

// OrderRow is a flattened order used by listings and exports.
type OrderRow struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	VendorName string          `json:"vendor_name"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
	Notes      string          `json:"notes"`
}

// SalesReport is the full sales view.
type SalesReport struct {
	Summary      SalesSummary   `json:"summary"`
	TopProducts  []ProductSales `json:"top_products"`
	VendorSales  []VendorSales  `json:"vendor_sales"`
	MonthlyTrend []MonthPoint   `json:"monthly_trend"`
	LatestOrders []OrderRow     `json:"latest_orders"`
}

// StockSummary aggregates the stock position.
type StockSummary struct {
	TotalProducts   int             `json:"total_products"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
	LowCount        int             `json:"low_count"`
	OutCount        int             `json:"out_count"`
}

// StockRow is one product's stock position.
type StockRow struct {
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode"`
	Quantity      int             `json:"quantity"`
	Reserved      int             `json:"reserved"`
	Available     int             `json:"available"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	MRP           decimal.Decimal `json:"mrp"`
	StockValue    decimal.Decimal `json:"stock_value"`
	Status        string          `json:"status"`
}

// StockInRow is a completed receiving batch.
type StockInRow struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalItems  int       `json:"total_items"`
	Notes       string    `json:"notes"`
}

// Movement is a product quantity moved in a window.
type Movement struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// StockReport is the full stock view.
type StockReport struct {
	Threshold      int          `json:"threshold"`
	Summary        StockSummary `json:"summary"`
	Rows           []StockRow   `json:"rows"`
	RecentStockIns []StockInRow `json:"recent_stock_ins"`
	Movements      []Movement   `json:"movements"`
	Turnover       []Movement   `json:"turnover"`
}
