package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StockLedger is the locked stock view used inside a unit of work.
type StockLedger interface {
	GetStockForUpdate(ctx context.Context, productID int64) (Stock, error)
	InsertStock(ctx context.Context, productID int64, quantity int) (Stock, bool, error)
	UpdateStock(ctx context.Context, stock Stock) error
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	StockLedger
	NextSequence(ctx context.Context, name string) (int64, error)
	MissingProducts(ctx context.Context, ids []int64) ([]int64, error)
	InsertStockIn(ctx context.Context, stockIn StockIn) (StockIn, error)
	GetStockInForUpdate(ctx context.Context, id string) (StockIn, error)
	UpdateStockInNotes(ctx context.Context, id, notes string) error
	ReplaceStockInItems(ctx context.Context, id string, lines []StockInLine) error
	ListStockInItems(ctx context.Context, id string) ([]StockInItem, error)
	RecomputeStockInTotal(ctx context.Context, id string) (int, error)
	MarkStockInCompleted(ctx context.Context, id string, at time.Time) error
	DeleteStockIn(ctx context.Context, id string) error
}

type txRepository struct {
	q db.DBTX
}

// NewLedger binds a StockLedger to a transaction owned by another package.
func NewLedger(q db.DBTX) StockLedger {
	return &txRepository{q: q}
}

// WithTx executes the callback inside a read-committed transaction.
// Stock rows are serialized with row locks, not by the isolation level.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

// ProductStock reads a product's name and stock row without locking.
func (r *Repository) ProductStock(ctx context.Context, productID int64) (string, *Stock, bool, error) {
	var (
		name     string
		stockID  *int64
		qty      *int
		reserved *int
		updated  *time.Time
	)
	err := r.pool.QueryRow(ctx, `SELECT p.item_name, s.id, s.quantity, s.reserved_quantity, s.last_updated
FROM products p LEFT JOIN stock s ON s.product_id = p.id
WHERE p.id = $1`, productID).Scan(&name, &stockID, &qty, &reserved, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}
	if stockID == nil {
		return name, nil, true, nil
	}
	return name, &Stock{ID: *stockID, ProductID: productID, Quantity: *qty, ReservedQuantity: *reserved, LastUpdated: *updated}, true, nil
}

func stockWhere(filter StockFilter) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	switch filter.Filter {
	case "low":
		args = append(args, filter.Threshold)
		where += ` AND s.quantity - s.reserved_quantity < $` + strconv.Itoa(len(args))
	case "out":
		where += ` AND s.quantity = 0`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND (p.item_name ILIKE $` + strconv.Itoa(len(args)) + ` OR p.barcode ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	return where, args
}

// ListStock returns stock rows joined with their products.
func (r *Repository) ListStock(ctx context.Context, filter StockFilter) ([]StockRow, int, error) {
	where, args := stockWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock s JOIN products p ON p.id = s.product_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT s.id, s.product_id, s.quantity, s.reserved_quantity, s.last_updated, p.item_name, p.barcode
FROM stock s JOIN products p ON p.id = s.product_id` + where + ` ORDER BY p.item_name`
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
	out := []StockRow{}
	for rows.Next() {
		var row StockRow
		if err := rows.Scan(&row.ID, &row.ProductID, &row.Quantity, &row.ReservedQuantity, &row.LastUpdated, &row.ProductName, &row.Barcode); err != nil {
			return nil, 0, err
		}
		row.Available = row.Stock.Available()
		row.Status = StockLevel(row.Quantity, filter.Threshold)
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// EnsureStockRecords creates a zero stock row for every product without one.
func (r *Repository) EnsureStockRecords(ctx context.Context) (EnsureResult, error) {
	var res EnsureResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&res.Checked); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `INSERT INTO stock (product_id, quantity, reserved_quantity)
SELECT p.id, 0, 0 FROM products p
WHERE NOT EXISTS (SELECT 1 FROM stock s WHERE s.product_id = p.id)
ON CONFLICT (product_id) DO NOTHING`)
		if err != nil {
			return err
		}
		res.Created = int(tag.RowsAffected())
		res.Existing = res.Checked - res.Created
		return nil
	})
	return res, err
}

// GetStockIn returns a StockIn with its items.
func (r *Repository) GetStockIn(ctx context.Context, id string) (StockIn, error) {
	in, err := scanStockIn(r.pool.QueryRow(ctx, selectStockIn+` WHERE id = $1`, id))
	if err != nil {
		return StockIn{}, err
	}
	items, err := listStockInItems(ctx, r.pool, id)
	if err != nil {
		return StockIn{}, err
	}
	in.Items = items
	return in, nil
}

// ListStockIns lists batches newest first.
func (r *Repository) ListStockIns(ctx context.Context, filter StockInFilter) ([]StockIn, int, error) {
	where := ` WHERE 1=1`
	switch filter.Status {
	case "completed":
		where += ` AND is_completed`
	case "pending":
		where += ` AND NOT is_completed`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_ins`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := selectStockIn + where + ` ORDER BY created_at DESC, id DESC`
	args := []any{}
	if filter.Limit > 0 {
		offset := (filter.Page - 1) * filter.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filter.Limit, offset)
		query += ` LIMIT $1 OFFSET $2`
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []StockIn{}
	for rows.Next() {
		in, err := scanStockIn(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, in)
	}
	return out, total, rows.Err()
}

const selectStockIn = `SELECT id, notes, total_items, is_completed, created_at, updated_at, completed_at FROM stock_ins`

func scanStockIn(row pgx.Row) (StockIn, error) {
	var in StockIn
	err := row.Scan(&in.ID, &in.Notes, &in.TotalItems, &in.IsCompleted, &in.CreatedAt, &in.UpdatedAt, &in.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockIn{}, ErrStockInNotFound
	}
	return in, err
}

func listStockInItems(ctx context.Context, q db.DBTX, id string) ([]StockInItem, error) {
	rows, err := q.Query(ctx, `SELECT i.id, i.stock_in_id, i.product_id, p.item_name, p.barcode, i.quantity
FROM stock_in_items i JOIN products p ON p.id = i.product_id
WHERE i.stock_in_id = $1 ORDER BY i.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockInItem{}
	for rows.Next() {
		var it StockInItem
		if err := rows.Scan(&it.ID, &it.StockInID, &it.ProductID, &it.ProductName, &it.Barcode, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, productID int64) (Stock, error) {
	var s Stock
	err := r.q.QueryRow(ctx, `SELECT id, product_id, quantity, reserved_quantity, last_updated FROM stock WHERE product_id = $1 FOR UPDATE`, productID).
		Scan(&s.ID, &s.ProductID, &s.Quantity, &s.ReservedQuantity, &s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{ProductID: productID}, ErrStockNotFound
	}
	return s, err
}

// InsertStock creates the row unless another transaction already did; created reports which.
func (r *txRepository) InsertStock(ctx context.Context, productID int64, quantity int) (Stock, bool, error) {
	s := Stock{ProductID: productID, Quantity: quantity}
	err := r.q.QueryRow(ctx, `INSERT INTO stock (product_id, quantity, reserved_quantity) VALUES ($1, $2, 0)
ON CONFLICT (product_id) DO NOTHING
RETURNING id, last_updated`, productID, quantity).Scan(&s.ID, &s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, false, nil
	}
	if err != nil {
		return Stock{}, false, err
	}
	return s, true, nil
}

func (r *txRepository) UpdateStock(ctx context.Context, s Stock) error {
	_, err := r.q.Exec(ctx, `UPDATE stock SET quantity = $1, reserved_quantity = $2, last_updated = NOW() WHERE id = $3`, s.Quantity, s.ReservedQuantity, s.ID)
	return err
}

func (r *txRepository) NextSequence(ctx context.Context, name string) (int64, error) {
	return db.NextSequence(ctx, r.q, name)
}

func (r *txRepository) MissingProducts(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT u.id FROM unnest($1::bigint[]) AS u(id) WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.id = u.id)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (r *txRepository) InsertStockIn(ctx context.Context, in StockIn) (StockIn, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO stock_ins (id, notes) VALUES ($1, $2) RETURNING created_at, updated_at`, in.ID, in.Notes).
		Scan(&in.CreatedAt, &in.UpdatedAt)
	return in, err
}

func (r *txRepository) GetStockInForUpdate(ctx context.Context, id string) (StockIn, error) {
	return scanStockIn(r.q.QueryRow(ctx, selectStockIn+` WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) UpdateStockInNotes(ctx context.Context, id, notes string) error {
	_, err := r.q.Exec(ctx, `UPDATE stock_ins SET notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	return err
}

func (r *txRepository) ReplaceStockInItems(ctx context.Context, id string, lines []StockInLine) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_in_items WHERE stock_in_id = $1`, id); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := r.q.Exec(ctx, `INSERT INTO stock_in_items (stock_in_id, product_id, quantity) VALUES ($1, $2, $3)`, id, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ListStockInItems(ctx context.Context, id string) ([]StockInItem, error) {
	return listStockInItems(ctx, r.q, id)
}

func (r *txRepository) RecomputeStockInTotal(ctx context.Context, id string) (int, error) {
	var total int
	err := r.q.QueryRow(ctx, `UPDATE stock_ins SET total_items = COALESCE((SELECT SUM(quantity) FROM stock_in_items WHERE stock_in_id = $1), 0), updated_at = NOW()
WHERE id = $1 RETURNING total_items`, id).Scan(&total)
	return total, err
}

func (r *txRepository) MarkStockInCompleted(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE stock_ins SET is_completed = TRUE, completed_at = $1, updated_at = $1 WHERE id = $2 AND NOT is_completed`, at, id)
	return err
}

func (r *txRepository) DeleteStockIn(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM stock_ins WHERE id = $1`, id)
	return err
}
