package products

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type memoryRepo struct {
	seq      int64
	items    map[int64]Product
	searched string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Product{}}
}

func (m *memoryRepo) List(context.Context, shared.ListFilters) ([]Product, int, error) {
	return nil, 0, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.items[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) GetByBarcode(_ context.Context, barcode string) (Product, error) {
	for _, p := range m.items {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (m *memoryRepo) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	m.searched = query
	return []SearchResult{{ID: 1, ItemName: query}}, nil
}

func (m *memoryRepo) PriceInfo(_ context.Context, id int64) (PriceInfo, error) {
	p, ok := m.items[id]
	if !ok {
		return PriceInfo{}, shared.ErrNotFound
	}
	return PriceInfo{ProductID: id, ItemName: p.ItemName, MRP: p.MRP}, nil
}

func (m *memoryRepo) Create(_ context.Context, p Product) (Product, error) {
	m.seq++
	p.ID = m.seq
	p.Barcode = FormatBarcode(m.seq)
	m.items[p.ID] = p
	return p, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, p Product) error {
	existing, ok := m.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.ID = id
	p.Barcode = existing.Barcode
	m.items[id] = p
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type stubCategories struct{ err error }

func (s stubCategories) ValidatePair(context.Context, *int64, *int64) error { return s.err }

type memoryAudit struct{ actions []string }

func (a *memoryAudit) Record(_ context.Context, log internalShared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func TestFormatBarcode(t *testing.T) {
	assert.Equal(t, "A000001", FormatBarcode(1))
	assert.Equal(t, "A000042", FormatBarcode(42))
	assert.Equal(t, "A123456", FormatBarcode(123456))
}

func TestProfit(t *testing.T) {
	p := Product{PurchasePrice: decimal.RequireFromString("80.00"), MRP: decimal.RequireFromString("100.00")}
	assert.True(t, p.ProfitMargin().Equal(decimal.NewFromInt(20)))
	assert.True(t, p.ProfitPercentage().Equal(decimal.NewFromInt(25)))

	free := Product{MRP: decimal.NewFromInt(5)}
	assert.True(t, free.ProfitPercentage().IsZero())
}

func TestCreateAssignsBarcodeAndAudits(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	cache := &countingCache{}
	svc := NewService(repo, stubCategories{}, nil, audit, cache, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, Product{ItemName: " Green Tea ", MRP: decimal.RequireFromString("3.499"), IsActive: true})
	require.NoError(t, err)
	second, err := svc.Create(ctx, Product{ItemName: "Coffee", IsActive: true})
	require.NoError(t, err)

	assert.Equal(t, "A000001", first.Barcode)
	assert.Equal(t, "A000002", second.Barcode)
	assert.Equal(t, "Green Tea", first.ItemName)
	assert.Equal(t, "3.5", first.MRP.String())
	assert.Equal(t, []string{"product.created", "product.created"}, audit.actions)
	assert.Equal(t, 2, cache.bumps)
}

func TestUpdateKeepsBarcode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, stubCategories{}, nil, nil, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{ItemName: "Rice"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, Product{Barcode: "Z999999", ItemName: "Brown Rice"})
	require.NoError(t, err)
	assert.Equal(t, created.Barcode, updated.Barcode)
	assert.Equal(t, "Brown Rice", updated.ItemName)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), stubCategories{}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{ItemName: "Bad", MRP: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, internalShared.ErrValidation)

	_, err = svc.Create(ctx, Product{})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestCreateRejectsMismatchedSubCategory(t *testing.T) {
	mismatch := internalShared.NewValidationError("sub_category_id", "mismatch")
	svc := NewService(newMemoryRepo(), stubCategories{err: mismatch}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), Product{ItemName: "Tea"})
	var verr *internalShared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "sub_category_id")
}

func TestSearchRequiresTwoCharacters(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil, nil)

	results, err := svc.Search(context.Background(), " a ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, repo.searched)

	results, err = svc.Search(context.Background(), " te ")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "te", repo.searched)
}

func TestGetByBarcodeNormalizes(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil, nil)
	created, err := svc.Create(context.Background(), Product{ItemName: "Milk"})
	require.NoError(t, err)

	got, err := svc.GetByBarcode(context.Background(), " a000001 ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetByBarcode(context.Background(), "A000099")
	require.ErrorIs(t, err, internalShared.ErrNotFound)
}
