package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	salesshared "github.com/odyssey-erp/odyssey-backoffice/internal/sales/shared"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type memoryRepo struct {
	vendors  map[int64]string
	products map[int64]ProductRef
	stock    map[int64]inventory.Stock
	orders   map[int64]Order
	items    map[int64][]OrderItem
	nextID   int64
	failOn   string
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		vendors:  map[int64]string{1: "Acme", 2: "Globex"},
		products: map[int64]ProductRef{},
		stock:    map[int64]inventory.Stock{},
		orders:   map[int64]Order{},
		items:    map[int64][]OrderItem{},
	}
}

func (r *memoryRepo) withProduct(id int64, name, mrp string, qty *int) *memoryRepo {
	r.products[id] = ProductRef{ID: id, Name: name, MRP: decimal.RequireFromString(mrp)}
	if qty != nil {
		r.stock[id] = inventory.Stock{ID: id, ProductID: id, Quantity: *qty}
	}
	return r
}

func intPtr(v int) *int { return &v }

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	stock := make(map[int64]inventory.Stock, len(r.stock))
	for k, v := range r.stock {
		stock[k] = v
	}
	orders := make(map[int64]Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	items := make(map[int64][]OrderItem, len(r.items))
	for k, v := range r.items {
		items[k] = append([]OrderItem(nil), v...)
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.stock, r.orders, r.items = stock, orders, items
		return err
	}
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.VendorName = r.vendors[o.VendorID]
	o.Items = append([]OrderItem(nil), r.items[id]...)
	return o, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Order, int, error) {
	out := []Order{}
	for _, o := range r.orders {
		if filter.VendorID > 0 && o.VendorID != filter.VendorID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) VendorExists(_ context.Context, id int64) (bool, error) {
	_, ok := r.vendors[id]
	return ok, nil
}

func (r *memoryRepo) Products(_ context.Context, ids []int64) (map[int64]ProductRef, error) {
	out := map[int64]ProductRef{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (tx *memoryTx) GetStockForUpdate(_ context.Context, productID int64) (inventory.Stock, error) {
	s, ok := tx.repo.stock[productID]
	if !ok {
		return inventory.Stock{ProductID: productID}, inventory.ErrStockNotFound
	}
	return s, nil
}

func (tx *memoryTx) InsertStock(_ context.Context, productID int64, quantity int) (inventory.Stock, bool, error) {
	if _, ok := tx.repo.stock[productID]; ok {
		return inventory.Stock{}, false, nil
	}
	s := inventory.Stock{ID: productID, ProductID: productID, Quantity: quantity}
	tx.repo.stock[productID] = s
	return s, true, nil
}

func (tx *memoryTx) UpdateStock(_ context.Context, s inventory.Stock) error {
	if s.Quantity < 0 {
		return errors.New("stock quantity check violated")
	}
	tx.repo.stock[s.ProductID] = s
	return nil
}

func (tx *memoryTx) LockOrder(_ context.Context, id int64) error {
	if _, ok := tx.repo.orders[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (tx *memoryTx) InsertOrder(_ context.Context, order Order) (Order, error) {
	tx.repo.nextID++
	order.ID = tx.repo.nextID
	order.TotalAmount = decimal.Zero
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	tx.repo.orders[order.ID] = order
	return order, nil
}

func (tx *memoryTx) UpdateHeader(_ context.Context, id, vendorID int64, notes string) error {
	o := tx.repo.orders[id]
	o.VendorID = vendorID
	o.Notes = notes
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryTx) ListItems(_ context.Context, orderID int64) ([]OrderItem, error) {
	return append([]OrderItem(nil), tx.repo.items[orderID]...), nil
}

func (tx *memoryTx) InsertItem(_ context.Context, item OrderItem) error {
	if tx.repo.failOn == "insert_item" {
		return errors.New("insert failed")
	}
	item.Compute()
	tx.repo.items[item.OrderID] = append(tx.repo.items[item.OrderID], item)
	return nil
}

func (tx *memoryTx) DeleteItems(_ context.Context, orderID int64) error {
	delete(tx.repo.items, orderID)
	return nil
}

func (tx *memoryTx) DeleteOrder(_ context.Context, id int64) error {
	delete(tx.repo.orders, id)
	delete(tx.repo.items, id)
	return nil
}

func (tx *memoryTx) RecomputeTotal(_ context.Context, orderID int64) (decimal.Decimal, error) {
	amounts := make([]salesshared.LineAmounts, 0, len(tx.repo.items[orderID]))
	for _, item := range tx.repo.items[orderID] {
		amounts = append(amounts, salesshared.CalculateLine(item.Quantity, item.UnitPrice, item.DiscountType, item.DiscountValue))
	}
	o := tx.repo.orders[orderID]
	o.TotalAmount = salesshared.SumTotals(amounts)
	tx.repo.orders[orderID] = o
	return o.TotalAmount, nil
}

// memoryStock mirrors the inventory pre-check over the same in-memory rows.
type memoryStock struct {
	repo     *memoryRepo
	notified int
	rejected int
}

func (m *memoryStock) CheckAll(_ context.Context, reqs []inventory.Requirement, released map[int64]int) error {
	var failed []inventory.Availability
	for _, req := range reqs {
		p, ok := m.repo.products[req.ProductID]
		line := inventory.Availability{ProductID: req.ProductID, ProductName: p.Name, Requested: req.Quantity}
		s, hasStock := m.repo.stock[req.ProductID]
		switch {
		case !ok:
			line.Status = inventory.StatusNotFound
			line.Message = fmt.Sprintf("Product with ID %d not found", req.ProductID)
		case !hasStock && released[req.ProductID] == 0:
			line.Status = inventory.StatusNoRecord
			line.Message = fmt.Sprintf("No stock record found for product '%s'", p.Name)
		default:
			line.AvailableQty = s.Available() + released[req.ProductID]
			if req.Quantity > line.AvailableQty {
				line.Status = inventory.StatusInsufficient
				line.Message = fmt.Sprintf("Not enough stock for '%s'. Available: %d, Requested: %d", p.Name, line.AvailableQty, req.Quantity)
			}
		}
		if line.Status != "" {
			failed = append(failed, line)
		}
	}
	if len(failed) > 0 {
		m.rejected += len(failed)
		return &inventory.StockError{Lines: failed}
	}
	return nil
}

func (m *memoryStock) Notify(context.Context) { m.notified++ }
func (m *memoryStock) Rejected(lines int)   { m.rejected += lines }

type countingMetrics map[string]int

func (c countingMetrics) OrderMutated(op string) { c[op]++ }

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	delete(m.keys, module+":"+key)
	return nil
}

type fixture struct {
	repo    *memoryRepo
	stock   *memoryStock
	metrics countingMetrics
	audit   *recordingAudit
	idem    *memoryIdempotency
	svc     *Service
}

func newFixture(repo *memoryRepo) fixture {
	f := fixture{
		repo:    repo,
		stock:   &memoryStock{repo: repo},
		metrics: countingMetrics{},
		audit:   &recordingAudit{},
		idem:    &memoryIdempotency{keys: map[string]bool{}},
	}
	f.svc = NewService(repo, f.stock, ServiceDeps{Audit: f.audit, Idempotency: f.idem, Metrics: f.metrics})
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCreateReducesStockAndTotals(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))

	order, err := f.svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		Notes:    " weekly ",
		Lines:    []Line{{ProductID: 1, Quantity: 3, DiscountValue: dec("5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, f.repo.stock[1].Quantity)
	assert.Equal(t, "55", order.TotalAmount.String())
	assert.Equal(t, "weekly", order.Notes)
	assert.Equal(t, "Acme", order.VendorName)
	require.Len(t, order.Items, 1)
	assert.Equal(t, salesshared.DiscountFlat, order.Items[0].DiscountType)
	assert.Equal(t, "20", order.Items[0].UnitPrice.String())
	assert.Equal(t, 1, f.metrics["create"])
	assert.Equal(t, 1, f.stock.notified)
	assert.Equal(t, []string{"order.create"}, f.audit.actions)
}

func TestCreateUsesExplicitPriceAndPercentage(t *testing.T) {
	f := newFixture(newMemoryRepo().
		withProduct(1, "Tea", "20.00", intPtr(10)).
		withProduct(2, "Coffee", "8.00", intPtr(10)))

	order, err := f.svc.Create(context.Background(), CreateInput{
		VendorID: 2,
		Lines: []Line{
			{ProductID: 1, Quantity: 2, UnitPrice: decPtr("15.00"), DiscountType: salesshared.DiscountPercentage, DiscountValue: dec("10")},
			{ProductID: 2, Quantity: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "59", order.TotalAmount.String())
	assert.Equal(t, 8, f.repo.stock[1].Quantity)
	assert.Equal(t, 6, f.repo.stock[2].Quantity)
}

func TestCreateInsufficientStockLeavesNothing(t *testing.T) {
	f := newFixture(newMemoryRepo().
		withProduct(1, "Tea", "20.00", intPtr(10)).
		withProduct(2, "Coffee", "8.00", nil))

	_, err := f.svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		Lines:    []Line{{ProductID: 1, Quantity: 15}, {ProductID: 2, Quantity: 1}},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	var stockErr *inventory.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, []string{
		"Not enough stock for 'Tea'. Available: 10, Requested: 15",
		"No stock record found for product 'Coffee'",
	}, stockErr.Details())
	assert.Equal(t, 10, f.repo.stock[1].Quantity)
	assert.Empty(t, f.repo.orders)
	assert.Zero(t, f.metrics["create"])
}

func TestCreateLockedRecheckRejectsRace(t *testing.T) {
	repo := newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(5))
	f := newFixture(repo)
	// the pre-check sees 5, then a concurrent order takes 4 before the row lock
	racy := &racingStock{memoryStock: f.stock, after: func() {
		s := repo.stock[1]
		s.Quantity = 1
		repo.stock[1] = s
	}}
	svc := NewService(repo, racy, ServiceDeps{})

	_, err := svc.Create(context.Background(), CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 3}}})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Available: 1, Requested: 3")
	assert.Equal(t, 1, repo.stock[1].Quantity)
	assert.Empty(t, repo.orders)
	assert.Equal(t, 1, f.stock.rejected)
}

type racingStock struct {
	*memoryStock
	after func()
}

func (r *racingStock) CheckAll(ctx context.Context, reqs []inventory.Requirement, released map[int64]int) error {
	err := r.memoryStock.CheckAll(ctx, reqs, released)
	r.after()
	return err
}

func TestCreateRollsBackOnFailure(t *testing.T) {
	repo := newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10))
	repo.failOn = "insert_item"
	f := newFixture(repo)

	_, err := f.svc.Create(context.Background(), CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 2}}, IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.Equal(t, 10, repo.stock[1].Quantity)
	assert.Empty(t, repo.orders)
	assert.Empty(t, f.idem.keys)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 0}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 1, DiscountValue: dec("25")}}})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), salesshared.ErrDiscountExceedsTotal.Error())

	_, err = f.svc.Create(ctx, CreateInput{VendorID: 9, Lines: []Line{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrVendorNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 42, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, 10, f.repo.stock[1].Quantity)
	assert.Empty(t, f.repo.orders)
}

func TestCreateIdempotencyKey(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))
	in := CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 1}}, IdempotencyKey: "abc"}

	_, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Equal(t, 9, f.repo.stock[1].Quantity)
	assert.Len(t, f.repo.orders, 1)
}

func TestDeleteRestoresStock(t *testing.T) {
	f := newFixture(newMemoryRepo().
		withProduct(1, "Tea", "20.00", intPtr(10)).
		withProduct(2, "Coffee", "8.00", intPtr(4)))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 4}}})
	require.NoError(t, err)
	require.Equal(t, 7, f.repo.stock[1].Quantity)

	// the stock row of product 2 vanished in the meantime
	delete(f.repo.stock, 2)

	res, err := f.svc.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []RestoredLine{
		{ProductID: 1, Quantity: 3, StockAfter: 10},
		{ProductID: 2, Quantity: 4, StockAfter: 4},
	}, res.Restored)
	assert.Equal(t, 10, f.repo.stock[1].Quantity)
	assert.Equal(t, 4, f.repo.stock[2].Quantity)
	assert.Empty(t, f.repo.orders)

	_, err = f.svc.Delete(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateQuantityNetsStockChange(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 3}}})
	require.NoError(t, err)
	require.Equal(t, 7, f.repo.stock[1].Quantity)

	lines := []Line{{ProductID: 1, Quantity: 5}}
	updated, err := f.svc.Update(ctx, order.ID, UpdateInput{Lines: &lines})
	require.NoError(t, err)
	assert.Equal(t, 5, f.repo.stock[1].Quantity)
	assert.Equal(t, "100", updated.TotalAmount.String())
	assert.Equal(t, 5, updated.Items[0].Quantity)
}

func TestUpdatePreCheckCountsReleasedStock(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 8}}})
	require.NoError(t, err)
	require.Equal(t, 2, f.repo.stock[1].Quantity)

	lines := []Line{{ProductID: 1, Quantity: 10}}
	_, err = f.svc.Update(ctx, order.ID, UpdateInput{Lines: &lines})
	require.NoError(t, err)
	assert.Equal(t, 0, f.repo.stock[1].Quantity)

	lines = []Line{{ProductID: 1, Quantity: 11}}
	_, err = f.svc.Update(ctx, order.ID, UpdateInput{Lines: &lines})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 0, f.repo.stock[1].Quantity)
	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Items[0].Quantity)
	assert.Equal(t, "200", got.TotalAmount.String())
}

func TestUpdateLockedRecheckRollsBackRestore(t *testing.T) {
	repo := newMemoryRepo().
		withProduct(1, "Tea", "20.00", intPtr(10)).
		withProduct(2, "Coffee", "8.00", intPtr(5))
	f := newFixture(repo)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 3}}})
	require.NoError(t, err)
	require.Equal(t, 7, repo.stock[1].Quantity)

	racy := &racingStock{memoryStock: f.stock, after: func() {
		s := repo.stock[2]
		s.Quantity = 1
		repo.stock[2] = s
	}}
	svc := NewService(repo, racy, ServiceDeps{})

	lines := []Line{{ProductID: 2, Quantity: 4}}
	_, err = svc.Update(ctx, order.ID, UpdateInput{Lines: &lines})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Available: 1, Requested: 4")

	assert.Equal(t, 7, repo.stock[1].Quantity)
	assert.Equal(t, 1, repo.stock[2].Quantity)
	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1), got.Items[0].ProductID)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, "60", got.TotalAmount.String())
}

func TestUpdateHeaderOnlyKeepsItems(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)

	vendor := int64(2)
	notes := "moved"
	updated, err := f.svc.Update(ctx, order.ID, UpdateInput{VendorID: &vendor, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.VendorID)
	assert.Equal(t, "moved", updated.Notes)
	assert.Len(t, updated.Items, 1)
	assert.Equal(t, 8, f.repo.stock[1].Quantity)

	missing := int64(77)
	_, err = f.svc.Update(ctx, order.ID, UpdateInput{VendorID: &missing})
	require.ErrorIs(t, err, ErrVendorNotFound)
}

func TestUpdateEmptyLinesClearsItems(t *testing.T) {
	f := newFixture(newMemoryRepo().withProduct(1, "Tea", "20.00", intPtr(10)))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{{ProductID: 1, Quantity: 4}}})
	require.NoError(t, err)

	empty := []Line{}
	updated, err := f.svc.Update(ctx, order.ID, UpdateInput{Lines: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.True(t, updated.TotalAmount.IsZero())
	assert.Equal(t, 10, f.repo.stock[1].Quantity)
}

func TestTotalIsRecomputedFromItems(t *testing.T) {
	f := newFixture(newMemoryRepo().
		withProduct(1, "Tea", "19.99", intPtr(50)).
		withProduct(2, "Coffee", "7.25", intPtr(50)))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{VendorID: 1, Lines: []Line{
		{ProductID: 1, Quantity: 3, DiscountType: salesshared.DiscountPercentage, DiscountValue: dec("12.5")},
		{ProductID: 2, Quantity: 5, DiscountValue: dec("1.25")},
	}})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.Subtotal.Sub(item.DiscountAmount))
	}
	assert.True(t, sum.Equal(order.TotalAmount), "sum %s total %s", sum, order.TotalAmount)

	var again decimal.Decimal
	require.NoError(t, f.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		again, err = tx.RecomputeTotal(ctx, order.ID)
		return err
	}))
	assert.True(t, again.Equal(order.TotalAmount))

	inv, err := f.svc.Invoice(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, inv.Total.Equal(order.TotalAmount))
	assert.Equal(t, "8.75", inv.DiscountTotal.String())
}

func TestListRejectsInvertedRange(t *testing.T) {
	f := newFixture(newMemoryRepo())
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, _, err := f.svc.List(context.Background(), ListFilter{From: &from, To: &to})
	require.ErrorIs(t, err, shared.ErrValidation)
}
