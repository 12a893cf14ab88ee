package reports

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository exposes the aggregate queries behind the reports.
type Repository interface {
	Dashboard(ctx context.Context, threshold int) (Dashboard, error)
	SalesSummary(ctx context.Context, filter SalesFilter) (int, decimal.Decimal, error)
	TopProducts(ctx context.Context, filter SalesFilter, limit int) ([]ProductSales, error)
	VendorSales(ctx context.Context, filter SalesFilter) ([]VendorSales, error)
	MonthlyTrend(ctx context.Context, vendorID int64, since time.Time) ([]MonthPoint, error)
	Orders(ctx context.Context, filter SalesFilter, limit int) ([]OrderRow, error)
	StockRows(ctx context.Context) ([]StockRow, error)
	RecentStockIns(ctx context.Context, limit int) ([]StockInRow, error)
	StockInMovements(ctx context.Context, since time.Time, limit int) ([]Movement, error)
	OrderedUnits(ctx context.Context, since time.Time, limit int) ([]Movement, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// lineTotalSQL mirrors the per-line arithmetic used for order totals.
const lineTotalSQL = `(ROUND(i.quantity * i.unit_price, 2) - CASE i.discount_type
	WHEN 'percentage' THEN ROUND(ROUND(i.quantity * i.unit_price, 2) * i.discount_value / 100, 2)
	ELSE ROUND(i.discount_value, 2) END)`

func salesWhere(filter SalesFilter) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Start != nil {
		args = append(args, *filter.Start)
		where += ` AND o.created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.End != nil {
		args = append(args, filter.End.AddDate(0, 0, 1))
		where += ` AND o.created_at < $` + strconv.Itoa(len(args))
	}
	if filter.VendorID > 0 {
		args = append(args, filter.VendorID)
		where += ` AND o.vendor_id = $` + strconv.Itoa(len(args))
	}
	return where, args
}

func (r *repository) Dashboard(ctx context.Context, threshold int) (Dashboard, error) {
	var d Dashboard
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM orders),
	(SELECT COALESCE(SUM(total_amount), 0) FROM orders),
	(SELECT COUNT(*) FROM products WHERE is_active),
	(SELECT COUNT(*) FROM stock WHERE quantity - reserved_quantity < $1)`, threshold).
		Scan(&d.TotalOrders, &d.TotalOrderValue, &d.ActiveProducts, &d.LowStockCount)
	return d, err
}

func (r *repository) SalesSummary(ctx context.Context, filter SalesFilter) (int, decimal.Decimal, error) {
	where, args := salesWhere(filter)
	var (
		count int
		total decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(o.total_amount), 0) FROM orders o`+where, args...).Scan(&count, &total)
	return count, total, err
}

func (r *repository) TopProducts(ctx context.Context, filter SalesFilter, limit int) ([]ProductSales, error) {
	where, args := salesWhere(filter)
	args = append(args, limit)
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.item_name, SUM(i.quantity), SUM(`+lineTotalSQL+`) AS revenue
FROM order_items i
JOIN orders o ON o.id = i.order_id
JOIN products p ON p.id = i.product_id`+where+`
GROUP BY p.id, p.item_name
ORDER BY revenue DESC, p.item_name
LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (ProductSales, error) {
		var p ProductSales
		err := row.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue)
		return p, err
	})
}

func (r *repository) VendorSales(ctx context.Context, filter SalesFilter) ([]VendorSales, error) {
	where, args := salesWhere(filter)
	rows, err := r.pool.Query(ctx, `SELECT v.id, v.name, COUNT(o.id), COALESCE(SUM(o.total_amount), 0) AS total
FROM orders o JOIN vendors v ON v.id = o.vendor_id`+where+`
GROUP BY v.id, v.name
ORDER BY total DESC, v.name`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (VendorSales, error) {
		var v VendorSales
		err := row.Scan(&v.VendorID, &v.Name, &v.Orders, &v.Total)
		return v, err
	})
}

func (r *repository) MonthlyTrend(ctx context.Context, vendorID int64, since time.Time) ([]MonthPoint, error) {
	where, args := salesWhere(SalesFilter{Start: &since, VendorID: vendorID})
	rows, err := r.pool.Query(ctx, `SELECT to_char(date_trunc('month', o.created_at), 'YYYY-MM') AS month, COUNT(*), COALESCE(SUM(o.total_amount), 0)
FROM orders o`+where+`
GROUP BY month
ORDER BY month`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (MonthPoint, error) {
		var m MonthPoint
		err := row.Scan(&m.Month, &m.Orders, &m.Total)
		return m, err
	})
}

func (r *repository) Orders(ctx context.Context, filter SalesFilter, limit int) ([]OrderRow, error) {
	where, args := salesWhere(filter)
	query := `SELECT o.id, o.created_at, v.name, o.total_amount,
	(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id), o.notes
FROM orders o JOIN vendors v ON v.id = o.vendor_id` + where + `
ORDER BY o.created_at DESC, o.id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (OrderRow, error) {
		var o OrderRow
		err := row.Scan(&o.ID, &o.CreatedAt, &o.VendorName, &o.Total, &o.ItemsCount, &o.Notes)
		return o, err
	})
}

func (r *repository) StockRows(ctx context.Context) ([]StockRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.item_name, p.barcode, COALESCE(s.quantity, 0), COALESCE(s.reserved_quantity, 0),
	p.purchase_price, p.mrp
FROM products p LEFT JOIN stock s ON s.product_id = p.id
ORDER BY p.item_name, p.id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (StockRow, error) {
		var s StockRow
		err := row.Scan(&s.ProductID, &s.Name, &s.Barcode, &s.Quantity, &s.Reserved, &s.PurchasePrice, &s.MRP)
		return s, err
	})
}

func (r *repository) RecentStockIns(ctx context.Context, limit int) ([]StockInRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, completed_at, total_items, notes FROM stock_ins
WHERE is_completed ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (StockInRow, error) {
		var s StockInRow
		err := row.Scan(&s.ID, &s.CompletedAt, &s.TotalItems, &s.Notes)
		return s, err
	})
}

func (r *repository) StockInMovements(ctx context.Context, since time.Time, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.item_name, SUM(si.quantity) AS qty
FROM stock_in_items si
JOIN stock_ins s ON s.id = si.stock_in_id
JOIN products p ON p.id = si.product_id
WHERE s.is_completed AND s.completed_at >= $1
GROUP BY p.id, p.item_name
ORDER BY qty DESC, p.item_name
LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMovement)
}

func (r *repository) OrderedUnits(ctx context.Context, since time.Time, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.item_name, SUM(i.quantity) AS qty
FROM order_items i
JOIN orders o ON o.id = i.order_id
JOIN products p ON p.id = i.product_id
WHERE o.created_at >= $1
GROUP BY p.id, p.item_name
ORDER BY qty DESC, p.item_name
LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMovement)
}

func scanMovement(row pgx.Rows) (Movement, error) {
	var m Movement
	err := row.Scan(&m.ProductID, &m.Name, &m.Quantity)
	return m, err
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
