package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type mockRepo struct {
	mu             sync.Mutex
	dashboardCalls int
	summaryCalls   int
	stockCalls     int
	count          int
	total          decimal.Decimal
	trend          []MonthPoint
	stock          []StockRow
	trendSince     time.Time
	err            error
}

func (m *mockRepo) Dashboard(_ context.Context, threshold int) (Dashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboardCalls++
	return Dashboard{TotalOrders: m.count, TotalOrderValue: m.total, LowStockCount: threshold}, m.err
}

func (m *mockRepo) SalesSummary(context.Context, SalesFilter) (int, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryCalls++
	return m.count, m.total, m.err
}

func (m *mockRepo) TopProducts(context.Context, SalesFilter, int) ([]ProductSales, error) {
	return []ProductSales{{ProductID: 1, Name: "Tea", Quantity: 4, Revenue: decimal.RequireFromString("80")}}, nil
}

func (m *mockRepo) VendorSales(context.Context, SalesFilter) ([]VendorSales, error) {
	return []VendorSales{{VendorID: 1, Name: "Acme", Orders: m.count, Total: m.total}}, nil
}

func (m *mockRepo) MonthlyTrend(_ context.Context, _ int64, since time.Time) ([]MonthPoint, error) {
	m.mu.Lock()
	m.trendSince = since
	m.mu.Unlock()
	return m.trend, nil
}

func (m *mockRepo) Orders(context.Context, SalesFilter, int) ([]OrderRow, error) {
	return []OrderRow{{ID: 1, VendorName: "Acme", Total: m.total, ItemsCount: 2}}, nil
}

func (m *mockRepo) StockRows(context.Context) ([]StockRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stockCalls++
	return append([]StockRow(nil), m.stock...), nil
}

func (m *mockRepo) RecentStockIns(context.Context, int) ([]StockInRow, error) {
	return []StockInRow{{ID: "SI20250301001", TotalItems: 5}}, nil
}

func (m *mockRepo) StockInMovements(context.Context, time.Time, int) ([]Movement, error) {
	return []Movement{{ProductID: 1, Name: "Tea", Quantity: 5}}, nil
}

func (m *mockRepo) OrderedUnits(context.Context, time.Time, int) ([]Movement, error) {
	return []Movement{{ProductID: 1, Name: "Tea", Quantity: 4}}, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client, time.Minute), 10, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, mr
}

func TestDashboardCachesUntilBump(t *testing.T) {
	repo := &mockRepo{count: 3, total: decimal.RequireFromString("150.50")}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	second, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.dashboardCalls)
	require.Equal(t, first.TotalOrders, second.TotalOrders)
	require.True(t, second.TotalOrderValue.Equal(decimal.RequireFromString("150.50")))

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.dashboardCalls)
}

func TestDashboardErrorIsNotCached(t *testing.T) {
	repo := &mockRepo{err: errors.New("db down")}
	svc, _ := newTestService(t, repo)

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
	repo.err = nil
	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.dashboardCalls)
}

func TestSalesReport(t *testing.T) {
	repo := &mockRepo{
		count: 3,
		total: decimal.RequireFromString("100"),
		trend: []MonthPoint{{Month: "2025-04", Orders: 2, Total: decimal.RequireFromString("60")}},
	}
	svc, _ := newTestService(t, repo)

	report, err := svc.Sales(context.Background(), SalesFilter{})
	require.NoError(t, err)
	assert.Equal(t, "33.33", report.Summary.Average.String())
	assert.Len(t, report.TopProducts, 1)
	require.Len(t, report.MonthlyTrend, 12)
	assert.Equal(t, "2024-07", report.MonthlyTrend[0].Month)
	assert.Equal(t, "2025-06", report.MonthlyTrend[11].Month)
	assert.Equal(t, 2, report.MonthlyTrend[9].Orders)
	assert.True(t, report.MonthlyTrend[10].Total.IsZero())
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), repo.trendSince)

	_, err = svc.Sales(context.Background(), SalesFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.summaryCalls)
}

func TestSalesReportRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{})
	start := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.Sales(context.Background(), SalesFilter{Start: &start, End: &end})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSalesReportEmptyAverage(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{total: decimal.Zero})
	report, err := svc.Sales(context.Background(), SalesFilter{VendorID: 4})
	require.NoError(t, err)
	assert.True(t, report.Summary.Average.IsZero())
}

func TestStockReport(t *testing.T) {
	repo := &mockRepo{stock: []StockRow{
		{ProductID: 1, Name: "Tea", Quantity: 50, Reserved: 5, PurchasePrice: decimal.RequireFromString("2.50")},
		{ProductID: 2, Name: "Coffee", Quantity: 4, PurchasePrice: decimal.RequireFromString("10")},
		{ProductID: 3, Name: "Milk", Quantity: 0, PurchasePrice: decimal.RequireFromString("1")},
	}}
	svc, _ := newTestService(t, repo)

	report, err := svc.Stock(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Threshold)
	assert.Equal(t, StockSummary{TotalProducts: 3, TotalStockValue: report.Summary.TotalStockValue, LowCount: 1, OutCount: 1}, report.Summary)
	assert.Equal(t, "165", report.Summary.TotalStockValue.String())
	assert.Equal(t, 45, report.Rows[0].Available)
	assert.Equal(t, "In Stock", report.Rows[0].Status)
	assert.Equal(t, "Low Stock", report.Rows[1].Status)
	assert.Equal(t, "Out of Stock", report.Rows[2].Status)
	assert.Len(t, report.RecentStockIns, 1)
	assert.Len(t, report.Movements, 1)
	assert.Len(t, report.Turnover, 1)

	custom, err := svc.Stock(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, "Low Stock", custom.Rows[0].Status)
	assert.Equal(t, 2, repo.stockCalls)
}

func TestWarmFillsCache(t *testing.T) {
	repo := &mockRepo{total: decimal.Zero}
	svc, mr := newTestService(t, repo)

	require.NoError(t, svc.Warm(context.Background()))
	keys := mr.Keys()
	assert.Contains(t, keys, "reports:dashboard:10:v1")
	assert.Contains(t, keys, "reports:stock:10:v1")
	assert.Contains(t, keys, "reports:sales:-:-:0:v1")
}

func TestServiceWithoutRedis(t *testing.T) {
	repo := &mockRepo{count: 1, total: decimal.RequireFromString("5")}
	svc := NewService(repo, nil, 0, nil)
	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalOrders)
	require.NoError(t, svc.Invalidate(context.Background()))
}

type lookupCounter struct{ hits, misses int }

func (l *lookupCounter) ReportCacheLookup(hit bool) {
	if hit {
		l.hits++
		return
	}
	l.misses++
}

func TestCacheReportsLookups(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{count: 1, total: decimal.NewFromInt(5)})
	counter := &lookupCounter{}
	svc.cache.Observe(counter)

	for i := 0; i < 3; i++ {
		_, err := svc.Dashboard(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 1, counter.misses)
	require.Equal(t, 2, counter.hits)
}
