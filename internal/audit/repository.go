package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs.
type Repository interface {
	Window(ctx context.Context, f TimelineFilters, limit, offset int) ([]TimelineRow, error)
	All(ctx context.Context, f TimelineFilters, max int) ([]TimelineRow, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const timelineSelect = `SELECT a.id, a.occurred_at, COALESCE(a.actor_id, 0), COALESCE(u.email, 'system'),
a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id`

func timelineWhere(f TimelineFilters) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if !f.From.IsZero() {
		add("a.occurred_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("a.occurred_at < ?", f.To.AddDate(0, 0, 1))
	}
	if f.Actor != "" {
		add("u.email ILIKE ?", "%"+f.Actor+"%")
	}
	if f.Entity != "" {
		add("a.entity = ?", f.Entity)
	}
	if f.EntityID != "" {
		add("a.entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		add("a.action = ?", f.Action)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *pgRepository) Window(ctx context.Context, f TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	where, args := timelineWhere(f)
	args = append(args, limit, offset)
	query := timelineSelect + where + ` ORDER BY a.occurred_at DESC, a.id DESC LIMIT $` +
		strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return r.query(ctx, query, args...)
}

func (r *pgRepository) All(ctx context.Context, f TimelineFilters, max int) ([]TimelineRow, error) {
	where, args := timelineWhere(f)
	args = append(args, max)
	query := timelineSelect + where + ` ORDER BY a.occurred_at DESC, a.id DESC LIMIT $` + strconv.Itoa(len(args))
	return r.query(ctx, query, args...)
}

func (r *pgRepository) query(ctx context.Context, query string, args ...any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var t TimelineRow
		var at time.Time
		var meta []byte
		if err := row.Scan(&t.ID, &at, &t.ActorID, &t.Actor, &t.Action, &t.Entity, &t.EntityID, &meta); err != nil {
			return t, err
		}
		t.At = at.UTC()
		if len(meta) > 0 && string(meta) != "null" {
			t.Meta = meta
		}
		return t, nil
	})
}
