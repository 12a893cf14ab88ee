package db

import (
	"context"
	"fmt"
)

// NextSequence atomically increments the named counter and returns the new value.
// Callers run it on the same transaction that inserts the row carrying the generated
// code, so a rolled back insert also rolls back the counter.
func NextSequence(ctx context.Context, q DBTX, name string) (int64, error) {
	var value int64
	err := q.QueryRow(ctx, `INSERT INTO sequences (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("platform/db: next sequence %s: %w", name, err)
	}
	return value, nil
}
