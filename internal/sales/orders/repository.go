package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var (
	// ErrNotFound indicates an unknown order.
	ErrNotFound = fmt.Errorf("orders: order %w", shared.ErrNotFound)
	// ErrVendorNotFound indicates an unknown vendor.
	ErrVendorNotFound = fmt.Errorf("orders: vendor %w", shared.ErrNotFound)
)

// Repository is the read side plus the unit-of-work entry point.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	VendorExists(ctx context.Context, id int64) (bool, error)
	Products(ctx context.Context, ids []int64) (map[int64]ProductRef, error)
}

// TxRepository runs inside the order transaction and shares the stock ledger.
type TxRepository interface {
	inventory.StockLedger
	LockOrder(ctx context.Context, id int64) error
	InsertOrder(ctx context.Context, order Order) (Order, error)
	UpdateHeader(ctx context.Context, id, vendorID int64, notes string) error
	ListItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	InsertItem(ctx context.Context, item OrderItem) error
	DeleteItems(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, id int64) error
	RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	inventory.StockLedger
	q db.DBTX
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{StockLedger: inventory.NewLedger(tx), q: tx})
	})
}

const selectOrder = `SELECT o.id, o.vendor_id, v.name, o.total_amount, o.notes, o.created_at, o.updated_at
FROM orders o JOIN vendors v ON v.id = o.vendor_id`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.VendorID, &o.VendorName, &o.TotalAmount, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE o.id = $1`, id))
	if err != nil {
		return Order{}, err
	}
	o.Items, err = listItems(ctx, r.pool, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.VendorID > 0 {
		args = append(args, filter.VendorID)
		where += ` AND o.vendor_id = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND o.created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND o.created_at < $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectOrder + where + ` ORDER BY o.created_at DESC, o.id DESC`
	if filter.Limit > 0 {
		offset := (filter.Page - 1) * filter.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filter.Limit, offset)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) VendorExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) Products(ctx context.Context, ids []int64) (map[int64]ProductRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_name, mrp FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]ProductRef, len(ids))
	for rows.Next() {
		var p ProductRef
		if err := rows.Scan(&p.ID, &p.Name, &p.MRP); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func listItems(ctx context.Context, q db.DBTX, orderID int64) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT i.id, i.order_id, i.product_id, p.item_name, p.barcode, i.quantity, i.unit_price,
	i.discount_type, i.discount_value
FROM order_items i JOIN products p ON p.id = i.product_id
WHERE i.order_id = $1 ORDER BY i.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Barcode,
			&item.Quantity, &item.UnitPrice, &item.DiscountType, &item.DiscountValue); err != nil {
			return nil, err
		}
		item.Compute()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) LockOrder(ctx context.Context, id int64) error {
	var locked int64
	err := r.q.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *txRepository) InsertOrder(ctx context.Context, order Order) (Order, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO orders (vendor_id, notes, total_amount, created_at, updated_at)
VALUES ($1, $2, 0, $3, $3) RETURNING id, created_at, updated_at`, order.VendorID, order.Notes, time.Now().UTC()).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	return order, err
}

func (r *txRepository) UpdateHeader(ctx context.Context, id, vendorID int64, notes string) error {
	_, err := r.q.Exec(ctx, `UPDATE orders SET vendor_id = $2, notes = $3, updated_at = NOW() WHERE id = $1`, id, vendorID, notes)
	return err
}

func (r *txRepository) ListItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return listItems(ctx, r.q, orderID)
}

func (r *txRepository) InsertItem(ctx context.Context, item OrderItem) error {
	_, err := r.q.Exec(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price, discount_type, discount_value)
VALUES ($1, $2, $3, $4, $5, $6)`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, string(item.DiscountType), item.DiscountValue)
	return err
}

func (r *txRepository) DeleteItems(ctx context.Context, orderID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

func (r *txRepository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecomputeTotal overwrites the cached total from the persisted items.
func (r *txRepository) RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `UPDATE orders SET total_amount = COALESCE((
	SELECT SUM(ROUND(quantity * unit_price, 2) - CASE discount_type
		WHEN 'percentage' THEN ROUND(ROUND(quantity * unit_price, 2) * discount_value / 100, 2)
		ELSE ROUND(discount_value, 2) END)
	FROM order_items WHERE order_id = $1), 0), updated_at = NOW()
WHERE id = $1 RETURNING total_amount`, orderID).Scan(&total)
	return total, err
}
