package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	PriceInfo(ctx context.Context, id int64) (PriceInfo, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectProduct = `SELECT p.id, p.barcode, p.item_name, p.description, p.category_id, COALESCE(c.name, ''),
	p.sub_category_id, COALESCE(sc.name, ''), p.purchase_price, p.mrp, p.is_active, p.created_at, p.updated_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN categories sc ON sc.id = p.sub_category_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.CategoryID != nil {
		argCount++
		where += ` AND (p.category_id = $` + strconv.Itoa(argCount) + ` OR p.sub_category_id = $` + strconv.Itoa(argCount) + `)`
		args = append(args, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (p.item_name ILIKE $` + strconv.Itoa(argCount) + ` OR p.barcode ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND p.is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectProduct + where + " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+` WHERE p.barcode = $1 AND p.is_active`, barcode))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.barcode, p.item_name, p.mrp, COALESCE(c.name, ''), COALESCE(s.quantity, 0)
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN stock s ON s.product_id = p.id
WHERE p.is_active AND (p.item_name ILIKE $1 OR p.barcode ILIKE $1)
ORDER BY p.item_name
LIMIT $2`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.ID, &res.Barcode, &res.ItemName, &res.MRP, &res.CategoryName, &res.CurrentStock); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *repository) PriceInfo(ctx context.Context, id int64) (PriceInfo, error) {
	info := PriceInfo{ProductID: id}
	err := r.db.QueryRow(ctx, `SELECT p.item_name, p.mrp, COALESCE(s.quantity - s.reserved_quantity, 0)
FROM products p LEFT JOIN stock s ON s.product_id = p.id
WHERE p.id = $1`, id).Scan(&info.ItemName, &info.MRP, &info.AvailableQty)
	if errors.Is(err, pgx.ErrNoRows) {
		return PriceInfo{}, shared.ErrNotFound
	}
	return info, err
}

// Create assigns the barcode from the sequence counter inside the insert transaction.
func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		n, err := db.NextSequence(ctx, tx, BarcodeSequence)
		if err != nil {
			return err
		}
		product.Barcode = FormatBarcode(n)
		return tx.QueryRow(ctx, `INSERT INTO products (barcode, item_name, description, category_id, sub_category_id, purchase_price, mrp, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`,
			product.Barcode, product.ItemName, product.Description, product.CategoryID, product.SubCategoryID,
			product.PurchasePrice, product.MRP, product.IsActive).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	})
	if err != nil {
		return Product{}, shared.TranslateWriteError(err)
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET item_name = $1, description = $2, category_id = $3, sub_category_id = $4,
	purchase_price = $5, mrp = $6, is_active = $7, updated_at = NOW() WHERE id = $8`,
		product.ItemName, product.Description, product.CategoryID, product.SubCategoryID,
		product.PurchasePrice, product.MRP, product.IsActive, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Barcode, &p.ItemName, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.SubCategoryID, &p.SubCategoryName, &p.PurchasePrice, &p.MRP, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "barcode":
		return "p.barcode " + dir
	case "name":
		return "p.item_name " + dir
	case "mrp":
		return "p.mrp " + dir
	default:
		return "p.created_at DESC"
	}
}
