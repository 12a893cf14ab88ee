package categories

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	category = normalize(category)
	if err := s.validate(ctx, 0, category); err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, category)
}

func (s *Service) Update(ctx context.Context, id int64, category Category) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	category = normalize(category)
	if err := s.validate(ctx, id, category); err != nil {
		return Category{}, err
	}
	if err := s.repo.Update(ctx, id, category); err != nil {
		return Category{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

// ValidatePair checks that subCategoryID, when set, is a child of categoryID.
func (s *Service) ValidatePair(ctx context.Context, categoryID, subCategoryID *int64) error {
	if subCategoryID == nil {
		if categoryID != nil {
			if _, err := s.Get(ctx, *categoryID); err != nil {
				return fmt.Errorf("category: %w", err)
			}
		}
		return nil
	}
	if categoryID == nil {
		return errSubWithoutCategory
	}
	sub, err := s.Get(ctx, *subCategoryID)
	if err != nil {
		return fmt.Errorf("sub category: %w", err)
	}
	if sub.ParentID == nil || *sub.ParentID != *categoryID {
		return errSubCategoryMismatch
	}
	return nil
}
