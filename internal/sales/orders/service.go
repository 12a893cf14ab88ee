package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	salesshared "github.com/odyssey-erp/odyssey-backoffice/internal/sales/shared"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// IdempotencyModule scopes order create keys.
const IdempotencyModule = "orders"

// StockChecker is the inventory surface orders depend on.
type StockChecker interface {
	CheckAll(ctx context.Context, reqs []inventory.Requirement, released map[int64]int) error
	Notify(ctx context.Context)
	Rejected(lines int)
}

// MetricsPort counts order mutations.
type MetricsPort interface {
	OrderMutated(operation string)
}

type idempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// ServiceDeps groups optional collaborators.
type ServiceDeps struct {
	Audit       shared.AuditRecorder
	Idempotency idempotencyStore
	Metrics     MetricsPort
	Logger      *slog.Logger
}

// Service runs the stock-reserving order workflow.
type Service struct {
	repo    Repository
	stock   StockChecker
	audit   shared.AuditRecorder
	idem    idempotencyStore
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, stock StockChecker, deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		stock:   stock,
		audit:   deps.Audit,
		idem:    deps.Idempotency,
		metrics: deps.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Create validates the lines, pre-checks stock, then in one transaction locks every
// stock row, inserts the order with its items and reduces stock.
func (s *Service) Create(ctx context.Context, in CreateInput) (order Order, err error) {
	verr := &shared.ValidationError{}
	if in.VendorID <= 0 {
		verr.Add("vendor_id", "vendor is required")
	}
	if len(in.Lines) == 0 {
		verr.Add("items", "at least one item is required")
	}
	validateLines(verr, in.Lines)
	if err := verr.Err(); err != nil {
		return Order{}, err
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, key, IdempotencyModule); err != nil {
			return Order{}, err
		}
		defer func() {
			if err != nil {
				if derr := s.idem.Delete(context.WithoutCancel(ctx), key, IdempotencyModule); derr != nil {
					s.logger.Warn("idempotency key rollback failed", slog.Any("error", derr))
				}
			}
		}()
	}

	if err := s.requireVendor(ctx, in.VendorID); err != nil {
		return Order{}, err
	}
	items, names, err := s.buildItems(ctx, in.Lines)
	if err != nil {
		return Order{}, err
	}
	if err := s.stock.CheckAll(ctx, requirements(items), nil); err != nil {
		return Order{}, err
	}

	var created Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := inventory.Lock(ctx, tx, requirements(items), names)
		if err != nil {
			return err
		}
		created, err = tx.InsertOrder(ctx, Order{VendorID: in.VendorID, Notes: strings.TrimSpace(in.Notes)})
		if err != nil {
			return fmt.Errorf("orders: insert order: %w", err)
		}
		if err := insertItems(ctx, tx, locked, created.ID, items); err != nil {
			return err
		}
		created.TotalAmount, err = tx.RecomputeTotal(ctx, created.ID)
		return err
	})
	if err != nil {
		s.stockRejected(err)
		return Order{}, err
	}

	s.mutated(ctx, "create", created.ID, map[string]any{"vendor_id": in.VendorID, "lines": len(items), "total": created.TotalAmount.StringFixed(2)})
	return s.repo.Get(ctx, created.ID)
}

// Update changes the header and, when Lines is non-nil, replaces every item.
// Replacement lines are pre-checked as if the order's own items were already
// returned to stock; a failure leaves the order untouched.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Order, error) {
	verr := &shared.ValidationError{}
	if in.VendorID != nil && *in.VendorID <= 0 {
		verr.Add("vendor_id", "vendor is required")
	}
	if in.Lines != nil {
		validateLines(verr, *in.Lines)
	}
	if err := verr.Err(); err != nil {
		return Order{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	vendorID := current.VendorID
	if in.VendorID != nil && *in.VendorID != current.VendorID {
		if err := s.requireVendor(ctx, *in.VendorID); err != nil {
			return Order{}, err
		}
		vendorID = *in.VendorID
	}
	notes := current.Notes
	if in.Notes != nil {
		notes = strings.TrimSpace(*in.Notes)
	}

	var (
		items []OrderItem
		names map[int64]string
	)
	if in.Lines != nil {
		items, names, err = s.buildItems(ctx, *in.Lines)
		if err != nil {
			return Order{}, err
		}
		released := make(map[int64]int, len(current.Items))
		for _, item := range current.Items {
			released[item.ProductID] += item.Quantity
		}
		if err := s.stock.CheckAll(ctx, requirements(items), released); err != nil {
			return Order{}, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		if in.Lines != nil {
			existing, err := tx.ListItems(ctx, id)
			if err != nil {
				return err
			}
			if _, err := restore(ctx, tx, existing); err != nil {
				return err
			}
			if err := tx.DeleteItems(ctx, id); err != nil {
				return err
			}
			if len(items) > 0 {
				locked, err := inventory.Lock(ctx, tx, requirements(items), names)
				if err != nil {
					return err
				}
				if err := insertItems(ctx, tx, locked, id, items); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateHeader(ctx, id, vendorID, notes); err != nil {
			return fmt.Errorf("orders: update header: %w", err)
		}
		_, err := tx.RecomputeTotal(ctx, id)
		return err
	})
	if err != nil {
		s.stockRejected(err)
		return Order{}, err
	}

	meta := map[string]any{"vendor_id": vendorID}
	if in.Lines != nil {
		meta["lines"] = len(items)
	}
	s.mutated(ctx, "update", id, meta)
	return s.repo.Get(ctx, id)
}

// Delete returns every item's quantity to stock and removes the order.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	result := DeleteResult{OrderID: id}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, id)
		if err != nil {
			return err
		}
		result.Restored, err = restore(ctx, tx, items)
		if err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return DeleteResult{}, err
	}
	restored := make(map[string]any, len(result.Restored))
	for _, r := range result.Restored {
		restored[strconv.FormatInt(r.ProductID, 10)] = r.Quantity
	}
	s.mutated(ctx, "delete", id, map[string]any{"restored": restored})
	return result, nil
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, shared.NewValidationError("date_to", "end date must not be before start date")
	}
	return s.repo.List(ctx, filter)
}

// Invoice returns the order with its computed totals.
func (s *Service) Invoice(ctx context.Context, id int64) (Invoice, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	return NewInvoice(o, s.now()), nil
}

func validateLines(verr *shared.ValidationError, lines []Line) {
	seen := make(map[int64]bool, len(lines))
	for i, l := range lines {
		field := fmt.Sprintf("items[%d]", i)
		if l.ProductID <= 0 {
			verr.Add(field+".product_id", "product is required")
			continue
		}
		if seen[l.ProductID] {
			verr.Add(field+".product_id", fmt.Sprintf("product %d appears more than once", l.ProductID))
		}
		seen[l.ProductID] = true
		if l.Quantity <= 0 {
			verr.Add(field+".quantity", "quantity must be greater than 0")
		}
		switch salesshared.NormalizeDiscountType(l.DiscountType) {
		case salesshared.DiscountFlat, salesshared.DiscountPercentage:
		default:
			verr.Add(field+".discount_type", salesshared.ErrUnknownDiscountType.Error())
		}
	}
}

func (s *Service) requireVendor(ctx context.Context, vendorID int64) error {
	ok, err := s.repo.VendorExists(ctx, vendorID)
	if err != nil {
		return fmt.Errorf("orders: lookup vendor: %w", err)
	}
	if !ok {
		return ErrVendorNotFound
	}
	return nil
}

// buildItems resolves unit prices and computes line amounts. Unknown products are
// left for the stock check to report.
func (s *Service) buildItems(ctx context.Context, lines []Line) ([]OrderItem, map[int64]string, error) {
	if len(lines) == 0 {
		return nil, nil, nil
	}
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.repo.Products(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("orders: lookup products: %w", err)
	}
	names := make(map[int64]string, len(products))
	items := make([]OrderItem, 0, len(lines))
	verr := &shared.ValidationError{}
	for i, l := range lines {
		p, ok := products[l.ProductID]
		names[l.ProductID] = p.Name
		item := OrderItem{
			ProductID:     l.ProductID,
			ProductName:   p.Name,
			Quantity:      l.Quantity,
			UnitPrice:     p.MRP,
			DiscountType:  salesshared.NormalizeDiscountType(l.DiscountType),
			DiscountValue: l.DiscountValue.Round(2),
		}
		if l.UnitPrice != nil {
			item.UnitPrice = *l.UnitPrice
		}
		item.UnitPrice = item.UnitPrice.Round(2)
		if ok {
			if err := salesshared.ValidateLine(item.Quantity, item.UnitPrice, item.DiscountType, item.DiscountValue); err != nil {
				verr.Add(fmt.Sprintf("items[%d]", i), err.Error())
			}
		}
		item.Compute()
		items = append(items, item)
	}
	if err := verr.Err(); err != nil {
		return nil, nil, err
	}
	return items, names, nil
}

func requirements(items []OrderItem) []inventory.Requirement {
	reqs := make([]inventory.Requirement, 0, len(items))
	for _, item := range items {
		reqs = append(reqs, inventory.Requirement{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return reqs
}

func insertItems(ctx context.Context, tx TxRepository, locked inventory.Locked, orderID int64, items []OrderItem) error {
	for _, item := range items {
		item.OrderID = orderID
		if err := tx.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("orders: insert item for product %d: %w", item.ProductID, err)
		}
		if _, err := locked.Take(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func restore(ctx context.Context, tx TxRepository, items []OrderItem) ([]RestoredLine, error) {
	sorted := append([]OrderItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	out := make([]RestoredLine, 0, len(sorted))
	for _, item := range sorted {
		stock, err := inventory.Release(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("orders: restore product %d: %w", item.ProductID, err)
		}
		out = append(out, RestoredLine{ProductID: item.ProductID, Quantity: item.Quantity, StockAfter: stock.Quantity})
	}
	return out, nil
}

func (s *Service) stockRejected(err error) {
	var stockErr *inventory.StockError
	if errors.As(err, &stockErr) {
		s.stock.Rejected(len(stockErr.Lines))
	}
}

func (s *Service) mutated(ctx context.Context, op string, id int64, meta map[string]any) {
	if s.metrics != nil {
		s.metrics.OrderMutated(op)
	}
	s.stock.Notify(ctx)
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx),
			Action:   "order." + op,
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     meta,
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.String("action", op), slog.Any("error", err))
		}
	}
	s.logger.Info("order "+op+"d", slog.Int64("order_id", id))
}
