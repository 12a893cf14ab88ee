package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// StockInSequence names the per-day counter feeding StockIn ids.
func StockInSequence(date string) string {
	return "stock_in:" + date
}

// FormatStockInID renders e.g. SI20250101001.
func FormatStockInID(date string, n int64) string {
	return fmt.Sprintf("SI%s%03d", date, n)
}

// CreateStockIn opens a draft batch with its items.
func (s *Service) CreateStockIn(ctx context.Context, notes string, lines []StockInLine) (StockIn, error) {
	merged, err := s.validateStockInLines(lines)
	if err != nil {
		return StockIn{}, err
	}
	var created StockIn
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkProducts(ctx, tx, merged); err != nil {
			return err
		}
		date := s.now().Format("20060102")
		n, err := tx.NextSequence(ctx, StockInSequence(date))
		if err != nil {
			return err
		}
		created, err = tx.InsertStockIn(ctx, StockIn{ID: FormatStockInID(date, n), Notes: strings.TrimSpace(notes)})
		if err != nil {
			return err
		}
		if err := tx.ReplaceStockInItems(ctx, created.ID, merged); err != nil {
			return err
		}
		created.TotalItems, err = tx.RecomputeStockInTotal(ctx, created.ID)
		return err
	})
	if err != nil {
		return StockIn{}, err
	}
	s.record(ctx, "stock_in.created", created.ID, map[string]any{"total_items": created.TotalItems})
	return s.repo.GetStockIn(ctx, created.ID)
}

// UpdateStockIn replaces notes and items of a draft batch.
func (s *Service) UpdateStockIn(ctx context.Context, id, notes string, lines []StockInLine) (StockIn, error) {
	merged, err := s.validateStockInLines(lines)
	if err != nil {
		return StockIn{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetStockInForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.IsCompleted {
			return ErrStockInCompleted
		}
		if err := checkProducts(ctx, tx, merged); err != nil {
			return err
		}
		if err := tx.UpdateStockInNotes(ctx, id, strings.TrimSpace(notes)); err != nil {
			return err
		}
		if err := tx.ReplaceStockInItems(ctx, id, merged); err != nil {
			return err
		}
		_, err = tx.RecomputeStockInTotal(ctx, id)
		return err
	})
	if err != nil {
		return StockIn{}, err
	}
	s.record(ctx, "stock_in.updated", id, nil)
	return s.repo.GetStockIn(ctx, id)
}

// DeleteStockIn removes a draft batch.
func (s *Service) DeleteStockIn(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetStockInForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.IsCompleted {
			return ErrStockInCompleted
		}
		return tx.DeleteStockIn(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "stock_in.deleted", id, nil)
	return nil
}

// CompleteStockIn adds every item's quantity to stock and marks the batch completed.
// A completed batch yields ErrStockInCompleted and leaves stock untouched.
func (s *Service) CompleteStockIn(ctx context.Context, id string) (StockIn, error) {
	var added map[string]any
	err := s.locker.WithLock(ctx, shared.StockInLockKey(id), func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetStockInForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if current.IsCompleted {
				return ErrStockInCompleted
			}
			items, err := tx.ListStockInItems(ctx, id)
			if err != nil {
				return err
			}
			added = make(map[string]any, len(items))
			for _, item := range items {
				stock, err := Release(ctx, tx, item.ProductID, item.Quantity)
				if err != nil {
					return fmt.Errorf("inventory: add stock for product %d: %w", item.ProductID, err)
				}
				added[fmt.Sprint(item.ProductID)] = stock.Quantity
			}
			return tx.MarkStockInCompleted(ctx, id, s.now().UTC())
		})
	})
	if err != nil {
		return StockIn{}, err
	}
	if s.metrics != nil {
		s.metrics.StockInCompleted()
	}
	s.bump(ctx)
	s.record(ctx, "stock_in.completed", id, map[string]any{"stock": added})
	s.logger.Info("stock in completed", slog.String("stock_in_id", id), slog.Int("items", len(added)))
	return s.repo.GetStockIn(ctx, id)
}

// GetStockIn returns a batch with its items.
func (s *Service) GetStockIn(ctx context.Context, id string) (StockIn, error) {
	return s.repo.GetStockIn(ctx, strings.TrimSpace(id))
}

// ListStockIns lists batches newest first; status is "completed", "pending" or empty.
func (s *Service) ListStockIns(ctx context.Context, filter StockInFilter) ([]StockIn, int, error) {
	switch filter.Status {
	case "", "completed", "pending":
	default:
		return nil, 0, shared.NewValidationError("status", "status must be completed or pending")
	}
	return s.repo.ListStockIns(ctx, filter)
}

func (s *Service) validateStockInLines(lines []StockInLine) ([]StockInLine, error) {
	merged := mergeLines(lines)
	if len(merged) == 0 {
		return nil, shared.NewValidationError("items", "at least one item with quantity greater than zero is required")
	}
	return merged, nil
}

func checkProducts(ctx context.Context, tx TxRepository, lines []StockInLine) error {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	missing, err := tx.MissingProducts(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("inventory: products %v: %w", missing, shared.ErrNotFound)
	}
	return nil
}
