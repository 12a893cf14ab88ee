package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

var (
	errSubWithoutCategory  = internalShared.NewValidationError("sub_category_id", "sub category requires a category")
	errSubCategoryMismatch = internalShared.NewValidationError("sub_category_id", "sub category must belong to the selected category")
)

func normalize(c Category) Category {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	return c
}

func (s *Service) validate(ctx context.Context, id int64, c Category) error {
	verr := &internalShared.ValidationError{}
	if c.Name == "" {
		verr.Add("name", "category name is required")
	} else if len(c.Name) > 100 {
		verr.Add("name", "category name must be at most 100 characters")
	}
	if c.ParentID != nil {
		switch {
		case id != 0 && *c.ParentID == id:
			verr.Add("parent_id", "category cannot be its own parent")
		default:
			parent, err := s.repo.Get(ctx, *c.ParentID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					verr.Add("parent_id", "parent category not found")
				} else {
					return err
				}
			} else if !parent.IsTopLevel() {
				verr.Add("parent_id", "only top-level categories can have sub categories")
			}
		}
		if id != 0 {
			children, err := s.repo.CountChildren(ctx, id)
			if err != nil {
				return err
			}
			if children > 0 {
				verr.Add("parent_id", "a category with sub categories cannot become a sub category")
			}
		}
	}
	return verr.Err()
}
