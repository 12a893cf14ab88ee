package categories

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error)
	Get(ctx context.Context, id int64) (Category, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	Create(ctx context.Context, category Category) (Category, error)
	Update(ctx context.Context, id int64, category Category) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectCategory = `SELECT c.id, c.name, c.description, c.parent_id, COALESCE(p.name, ''), c.created_at
FROM categories c LEFT JOIN categories p ON p.id = c.parent_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND c.name ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.ParentID != nil {
		argCount++
		where += ` AND c.parent_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.ParentID)
	}
	if filters.TopLevelOnly {
		where += ` AND c.parent_id IS NULL`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectCategory + where + " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, selectCategory+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) Create(ctx context.Context, category Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, description, parent_id) VALUES ($1, $2, $3) RETURNING id, created_at`,
		category.Name, category.Description, category.ParentID).Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return Category{}, shared.TranslateWriteError(err)
	}
	return category, nil
}

func (r *repository) Update(ctx context.Context, id int64, category Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name = $1, description = $2, parent_id = $3 WHERE id = $4`,
		category.Name, category.Description, category.ParentID, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.ParentName, &c.CreatedAt)
	return c, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "created_at":
		return "c.created_at " + dir
	default:
		return "c.name " + dir
	}
}
