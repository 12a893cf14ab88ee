package attributes

import (
	"context"
	"strings"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Attribute, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Attribute, error) {
	if id <= 0 {
		return Attribute{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, a Attribute) (Attribute, error) {
	a = normalize(a)
	if err := validate(a); err != nil {
		return Attribute{}, err
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Update(ctx context.Context, id int64, a Attribute) (Attribute, error) {
	if id <= 0 {
		return Attribute{}, shared.ErrInvalidID
	}
	a = normalize(a)
	if err := validate(a); err != nil {
		return Attribute{}, err
	}
	if err := s.repo.Update(ctx, id, a); err != nil {
		return Attribute{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func normalize(a Attribute) Attribute {
	a.Name = strings.TrimSpace(a.Name)
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	if a.Type == "" {
		a.Type = TypeText
	}
	a.Description = strings.TrimSpace(a.Description)
	if a.Type == TypeChoice {
		a.Choices = strings.Join(a.ChoiceList(), ",")
	} else {
		a.Choices = ""
	}
	return a
}

func validate(a Attribute) error {
	verr := &internalShared.ValidationError{}
	if a.Name == "" {
		verr.Add("name", "attribute name is required")
	}
	switch a.Type {
	case TypeText, TypeNumber, TypeBoolean:
	case TypeChoice:
		if len(a.ChoiceList()) == 0 {
			verr.Add("choices", "choices are required for choice attributes")
		}
	default:
		verr.Add("attribute_type", "attribute type must be one of text, number, choice, boolean")
	}
	return verr.Err()
}
