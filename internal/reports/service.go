// Package reports aggregates orders and stock into cached dashboard views and exports.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

const (
	topProductsLimit  = 10
	latestOrdersLimit = 50
	recentStockIns    = 20
	movementLimit     = 10
	trendMonths       = 12
	movementWindow    = 30 * 24 * time.Hour
)

// Service coordinates report queries with the cache layer.
type Service struct {
	repo      Repository
	cache     *Cache
	threshold int
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, threshold int, logger *slog.Logger) *Service {
	if threshold <= 0 {
		threshold = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, threshold: threshold, logger: logger, now: time.Now}
}

// Dashboard returns the headline counters.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := s.cached(ctx, []string{"dashboard", fmt.Sprint(s.threshold)}, &out, func(ctx context.Context) (any, error) {
		return s.repo.Dashboard(ctx, s.threshold)
	})
	return out, err
}

// Sales builds the sales report for the filter.
func (s *Service) Sales(ctx context.Context, filter SalesFilter) (SalesReport, error) {
	if err := validateSalesFilter(filter); err != nil {
		return SalesReport{}, err
	}
	var out SalesReport
	err := s.cached(ctx, keySales(filter), &out, func(ctx context.Context) (any, error) {
		return s.loadSales(ctx, filter)
	})
	return out, err
}

func (s *Service) loadSales(ctx context.Context, filter SalesFilter) (SalesReport, error) {
	var report SalesReport
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, total, err := s.repo.SalesSummary(ctx, filter)
		if err != nil {
			return fmt.Errorf("sales summary: %w", err)
		}
		report.Summary = SalesSummary{Count: count, Total: total, Average: decimal.Zero}
		if count > 0 {
			report.Summary.Average = total.Div(decimal.NewFromInt(int64(count))).Round(2)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.TopProducts(ctx, filter, topProductsLimit)
		if err != nil {
			return fmt.Errorf("top products: %w", err)
		}
		report.TopProducts = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.VendorSales(ctx, filter)
		if err != nil {
			return fmt.Errorf("vendor sales: %w", err)
		}
		report.VendorSales = rows
		return nil
	})
	g.Go(func() error {
		start := monthStart(s.now()).AddDate(0, -(trendMonths - 1), 0)
		points, err := s.repo.MonthlyTrend(ctx, filter.VendorID, start)
		if err != nil {
			return fmt.Errorf("monthly trend: %w", err)
		}
		report.MonthlyTrend = fillMonths(points, start, trendMonths)
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.Orders(ctx, filter, latestOrdersLimit)
		if err != nil {
			return fmt.Errorf("latest orders: %w", err)
		}
		report.LatestOrders = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return SalesReport{}, err
	}
	return report, nil
}

// Stock builds the stock report; threshold <= 0 uses the configured default.
func (s *Service) Stock(ctx context.Context, threshold int) (StockReport, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	var out StockReport
	err := s.cached(ctx, keyStock(threshold), &out, func(ctx context.Context) (any, error) {
		return s.loadStock(ctx, threshold)
	})
	return out, err
}

func (s *Service) loadStock(ctx context.Context, threshold int) (StockReport, error) {
	report := StockReport{Threshold: threshold}
	since := s.now().Add(-movementWindow)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.StockRows(ctx, threshold)
		if err != nil {
			return err
		}
		report.Rows = rows
		report.Summary = summarizeStock(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.RecentStockIns(ctx, recentStockIns)
		if err != nil {
			return fmt.Errorf("recent stock ins: %w", err)
		}
		report.RecentStockIns = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.StockInMovements(ctx, since, movementLimit)
		if err != nil {
			return fmt.Errorf("stock movements: %w", err)
		}
		report.Movements = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.OrderedUnits(ctx, since, movementLimit)
		if err != nil {
			return fmt.Errorf("stock turnover: %w", err)
		}
		report.Turnover = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return StockReport{}, err
	}
	return report, nil
}

// StockRows returns every product's stock position classified against threshold.
func (s *Service) StockRows(ctx context.Context, threshold int) ([]StockRow, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	rows, err := s.repo.StockRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock rows: %w", err)
	}
	for i := range rows {
		r := &rows[i]
		r.Available = r.Quantity - r.Reserved
		r.StockValue = r.PurchasePrice.Mul(decimal.NewFromInt(int64(r.Quantity))).Round(2)
		r.Status = inventory.StockLevel(r.Quantity, threshold)
	}
	return rows, nil
}

// SalesOrders lists every order matching the filter for exports.
func (s *Service) SalesOrders(ctx context.Context, filter SalesFilter) ([]OrderRow, error) {
	if err := validateSalesFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.Orders(ctx, filter, 0)
}

// Warm precomputes the default reports under the current cache version.
func (s *Service) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Dashboard(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Sales(ctx, SalesFilter{})
		return err
	})
	g.Go(func() error {
		_, err := s.Stock(ctx, 0)
		return err
	})
	return g.Wait()
}

// Invalidate bumps the cache version.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// cached collapses concurrent loads of the same key and stores the result.
func (s *Service) cached(ctx context.Context, parts []string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		key = "reports:nocache:" + fmt.Sprint(parts)
	}
	resultChan := s.group.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

func validateSalesFilter(filter SalesFilter) error {
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return shared.NewValidationError("end_date", "end date must not be before start date")
	}
	return nil
}

func summarizeStock(rows []StockRow) StockSummary {
	sum := StockSummary{TotalProducts: len(rows), TotalStockValue: decimal.Zero}
	for _, r := range rows {
		sum.TotalStockValue = sum.TotalStockValue.Add(r.StockValue)
		switch r.Status {
		case inventory.LevelLow:
			sum.LowCount++
		case inventory.LevelOut:
			sum.OutCount++
		}
	}
	return sum
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func fillMonths(points []MonthPoint, start time.Time, months int) []MonthPoint {
	byMonth := make(map[string]MonthPoint, len(points))
	for _, p := range points {
		byMonth[p.Month] = p
	}
	out := make([]MonthPoint, 0, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		p, ok := byMonth[month]
		if !ok {
			p = MonthPoint{Month: month, Total: decimal.Zero}
		}
		out = append(out, p)
	}
	return out
}
