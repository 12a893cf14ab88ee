package products

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// MinSearchLength and MaxSearchResults bound the product lookup.
const (
	MinSearchLength  = 2
	MaxSearchResults = 50
)

// CategoryChecker validates a category / sub-category pair.
type CategoryChecker interface {
	ValidatePair(ctx context.Context, categoryID, subCategoryID *int64) error
}

type invalidator interface {
	Bump(ctx context.Context) error
}

type Service struct {
	repo       Repository
	categories CategoryChecker
	locker     *internalShared.Locker
	audit      internalShared.AuditRecorder
	cache      invalidator
	logger     *slog.Logger
}

func NewService(repo Repository, categories CategoryChecker, locker *internalShared.Locker, audit internalShared.AuditRecorder, cache invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, categories: categories, locker: locker, audit: audit, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.ToUpper(strings.TrimSpace(barcode))
	if barcode == "" {
		return Product{}, shared.ErrRequiredField
	}
	return s.repo.GetByBarcode(ctx, barcode)
}

// Search returns active products matching name or barcode. Short queries yield no results.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return []SearchResult{}, nil
	}
	return s.repo.Search(ctx, query, MaxSearchResults)
}

func (s *Service) PriceInfo(ctx context.Context, id int64) (PriceInfo, error) {
	if id <= 0 {
		return PriceInfo{}, shared.ErrInvalidID
	}
	return s.repo.PriceInfo(ctx, id)
}

// Create inserts the product and assigns its barcode.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	p = normalize(p)
	if err := s.check(ctx, p); err != nil {
		return Product{}, err
	}
	var created Product
	err := s.locker.WithLock(ctx, internalShared.SequenceLockKey(BarcodeSequence), func(ctx context.Context) error {
		var err error
		created, err = s.repo.Create(ctx, p)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, "product.created", created.ID, map[string]any{"barcode": created.Barcode})
	return created, nil
}

// Update changes everything except the barcode.
func (s *Service) Update(ctx context.Context, id int64, p Product) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	p = normalize(p)
	if err := s.check(ctx, p); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return Product{}, err
	}
	s.record(ctx, "product.updated", id, nil)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "product.deleted", id, nil)
	return nil
}

func (s *Service) check(ctx context.Context, p Product) error {
	if err := validate(p); err != nil {
		return err
	}
	if s.categories == nil {
		return nil
	}
	if err := s.categories.ValidatePair(ctx, p.CategoryID, p.SubCategoryID); err != nil {
		return fmt.Errorf("products: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  internalShared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
