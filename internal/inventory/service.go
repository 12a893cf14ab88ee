package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ProductStock(ctx context.Context, productID int64) (string, *Stock, bool, error)
	ListStock(ctx context.Context, filter StockFilter) ([]StockRow, int, error)
	EnsureStockRecords(ctx context.Context) (EnsureResult, error)
	GetStockIn(ctx context.Context, id string) (StockIn, error)
	ListStockIns(ctx context.Context, filter StockInFilter) ([]StockIn, int, error)
}

// MetricsPort receives domain counters.
type MetricsPort interface {
	StockInCompleted()
	StockRejected(lines int)
}

type invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates inventory operations.
type Service struct {
	repo      RepositoryPort
	audit     shared.AuditRecorder
	locker    *shared.Locker
	cache     invalidator
	metrics   MetricsPort
	logger    *slog.Logger
	threshold int
	now       func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold int
}

// ServiceDeps groups optional collaborators.
type ServiceDeps struct {
	Audit   shared.AuditRecorder
	Locker  *shared.Locker
	Cache   invalidator
	Metrics MetricsPort
	Logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig, deps ServiceDeps) *Service {
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = 10
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		audit:     deps.Audit,
		locker:    deps.Locker,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    logger,
		threshold: threshold,
		now:       time.Now,
	}
}

// Threshold returns the configured low stock threshold.
func (s *Service) Threshold() int {
	return s.threshold
}

// CheckAvailability reports whether qty of the product can be covered right now.
// It takes no lock; callers re-validate under lock before mutating.
func (s *Service) CheckAvailability(ctx context.Context, productID int64, qty int) (Availability, error) {
	if qty <= 0 {
		return Availability{}, ErrInvalidQuantity
	}
	name, stock, found, err := s.repo.ProductStock(ctx, productID)
	if err != nil {
		return Availability{}, fmt.Errorf("inventory: check availability: %w", err)
	}
	return evaluate(productID, name, stock, found, qty), nil
}

// CheckAll pre-checks every requirement and returns a *StockError listing each
// failing line. released holds quantities that will be returned to stock first.
func (s *Service) CheckAll(ctx context.Context, reqs []Requirement, released map[int64]int) error {
	var failed []Availability
	for _, req := range reqs {
		name, stock, found, err := s.repo.ProductStock(ctx, req.ProductID)
		if err != nil {
			return fmt.Errorf("inventory: check availability: %w", err)
		}
		if back := released[req.ProductID]; back > 0 && found {
			adjusted := Stock{ProductID: req.ProductID}
			if stock != nil {
				adjusted = *stock
			}
			adjusted.Quantity += back
			stock = &adjusted
		}
		res := evaluate(req.ProductID, name, stock, found, req.Quantity)
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		s.rejected(len(failed))
		return &StockError{Lines: failed}
	}
	return nil
}

// ListStock lists stock rows; filter "low" keeps available below the threshold, "out" keeps zero quantity.
func (s *Service) ListStock(ctx context.Context, filter StockFilter) ([]StockRow, int, error) {
	filter.Filter = strings.ToLower(strings.TrimSpace(filter.Filter))
	switch filter.Filter {
	case "", "low", "out":
	default:
		return nil, 0, shared.NewValidationError("filter", "filter must be low or out")
	}
	if filter.Threshold <= 0 {
		filter.Threshold = s.threshold
	}
	return s.repo.ListStock(ctx, filter)
}

// EnsureStockRecords creates a zero stock row for every product lacking one.
func (s *Service) EnsureStockRecords(ctx context.Context) (EnsureResult, error) {
	res, err := s.repo.EnsureStockRecords(ctx)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("inventory: ensure stock records: %w", err)
	}
	if res.Created > 0 {
		s.bump(ctx)
	}
	s.logger.Info("stock records ensured", slog.Int("checked", res.Checked), slog.Int("created", res.Created), slog.Int("existing", res.Existing))
	return res, nil
}

// Notify is called by other packages after they mutate stock.
func (s *Service) Notify(ctx context.Context) {
	s.bump(ctx)
}

// Rejected records lines rejected by a locked re-validation.
func (s *Service) Rejected(lines int) {
	s.rejected(lines)
}

func (s *Service) rejected(lines int) {
	if s.metrics != nil {
		s.metrics.StockRejected(lines)
	}
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "stock_in",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// mergeLines drops non positive quantities and sums duplicate products.
func mergeLines(lines []StockInLine) []StockInLine {
	totals := map[int64]int{}
	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			continue
		}
		totals[l.ProductID] += l.Quantity
	}
	out := make([]StockInLine, 0, len(totals))
	for id, qty := range totals {
		out = append(out, StockInLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
