package vendors

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, vendor Vendor) (Vendor, error)
	Update(ctx context.Context, id int64, vendor Vendor) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectVendor = `SELECT id, name, contact_email, phone_number, address, created_at FROM vendors`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR contact_email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectVendor + where + " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
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

	vendors := []Vendor{}
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.ContactEmail, &v.PhoneNumber, &v.Address, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	var v Vendor
	err := r.db.QueryRow(ctx, selectVendor+` WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.ContactEmail, &v.PhoneNumber, &v.Address, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.ErrNotFound
	}
	return v, err
}

func (r *repository) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO vendors (name, contact_email, phone_number, address) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		vendor.Name, vendor.ContactEmail, vendor.PhoneNumber, vendor.Address).Scan(&vendor.ID, &vendor.CreatedAt)
	if err != nil {
		return Vendor{}, shared.TranslateWriteError(err)
	}
	return vendor, nil
}

func (r *repository) Update(ctx context.Context, id int64, vendor Vendor) error {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET name = $1, contact_email = $2, phone_number = $3, address = $4 WHERE id = $5`,
		vendor.Name, vendor.ContactEmail, vendor.PhoneNumber, vendor.Address, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete fails with ErrInUse while orders reference the vendor.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "created_at":
		return "created_at " + dir
	case "email":
		return "contact_email " + dir
	default:
		return "name " + dir
	}
}
