package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Locked holds stock rows locked and validated inside one transaction.
type Locked map[int64]*Stock

// Lock takes row locks on every requirement in product id order and re-validates
// the quantities. Every failing line is reported in a single *StockError.
func Lock(ctx context.Context, l StockLedger, reqs []Requirement, names map[int64]string) (Locked, error) {
	ordered := append([]Requirement(nil), reqs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })
	locked := make(Locked, len(ordered))
	var failed []Availability
	for _, req := range ordered {
		if req.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		stock, err := l.GetStockForUpdate(ctx, req.ProductID)
		var current *Stock
		switch {
		case errors.Is(err, ErrStockNotFound):
		case err != nil:
			return nil, err
		default:
			current = &stock
		}
		check := evaluate(req.ProductID, names[req.ProductID], current, true, req.Quantity)
		if !check.OK() {
			failed = append(failed, check)
			continue
		}
		locked[req.ProductID] = current
	}
	if len(failed) > 0 {
		return nil, &StockError{Lines: failed}
	}
	return locked, nil
}

// Take reduces a locked row. A row that cannot cover qty after Lock passed is an
// invariant violation.
func (lk Locked) Take(ctx context.Context, l StockLedger, productID int64, qty int) (Stock, error) {
	stock, ok := lk[productID]
	if !ok {
		return Stock{}, fmt.Errorf("inventory: product %d was not locked: %w", productID, shared.ErrInvariant)
	}
	if !stock.Reduce(qty) {
		return Stock{}, fmt.Errorf("inventory: reduce %d of product %d after locked check: %w", qty, productID, shared.ErrInvariant)
	}
	if err := l.UpdateStock(ctx, *stock); err != nil {
		return Stock{}, err
	}
	return *stock, nil
}

// Release adds qty back to the product's stock, creating the row at qty when none exists.
func Release(ctx context.Context, l StockLedger, productID int64, qty int) (Stock, error) {
	if qty <= 0 {
		return Stock{}, ErrInvalidQuantity
	}
	stock, err := l.GetStockForUpdate(ctx, productID)
	if errors.Is(err, ErrStockNotFound) {
		created, ok, err := l.InsertStock(ctx, productID, qty)
		if err != nil {
			return Stock{}, err
		}
		if ok {
			return created, nil
		}
		stock, err = l.GetStockForUpdate(ctx, productID)
		if err != nil {
			return Stock{}, err
		}
	} else if err != nil {
		return Stock{}, err
	}
	stock.Add(qty)
	if err := l.UpdateStock(ctx, stock); err != nil {
		return Stock{}, err
	}
	return stock, nil
}
