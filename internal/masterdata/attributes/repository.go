package attributes

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Attribute, int, error)
	Get(ctx context.Context, id int64) (Attribute, error)
	Create(ctx context.Context, attribute Attribute) (Attribute, error)
	Update(ctx context.Context, id int64, attribute Attribute) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectAttribute = `SELECT id, name, attribute_type, choices, is_required, description, created_at FROM attributes`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Attribute, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attributes`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectAttribute + where + ` ORDER BY name ` + filters.Direction()
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attributes := []Attribute{}
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			return nil, 0, err
		}
		attributes = append(attributes, a)
	}
	return attributes, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Attribute, error) {
	a, err := scanAttribute(r.pool.QueryRow(ctx, selectAttribute+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attribute{}, shared.ErrNotFound
	}
	return a, err
}

func (r *repository) Create(ctx context.Context, a Attribute) (Attribute, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO attributes (name, attribute_type, choices, is_required, description)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		a.Name, a.Type, a.Choices, a.IsRequired, a.Description).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Attribute{}, shared.TranslateWriteError(err)
	}
	return a, nil
}

func (r *repository) Update(ctx context.Context, id int64, a Attribute) error {
	tag, err := r.pool.Exec(ctx, `UPDATE attributes SET name = $1, attribute_type = $2, choices = $3, is_required = $4, description = $5 WHERE id = $6`,
		a.Name, a.Type, a.Choices, a.IsRequired, a.Description, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attributes WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAttribute(row pgx.Row) (Attribute, error) {
	var a Attribute
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Choices, &a.IsRequired, &a.Description, &a.CreatedAt)
	return a, err
}
