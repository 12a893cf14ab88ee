package vendors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/shared"
	internalShared "github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

type memoryRepo struct {
	items map[int64]Vendor
	inUse map[int64]bool
}

func (m *memoryRepo) List(context.Context, shared.ListFilters) ([]Vendor, int, error) {
	return nil, 0, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Vendor, error) {
	v, ok := m.items[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (m *memoryRepo) Create(_ context.Context, v Vendor) (Vendor, error) {
	v.ID = int64(len(m.items) + 1)
	m.items[v.ID] = v
	return v, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, v Vendor) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	v.ID = id
	m.items[id] = v
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if m.inUse[id] {
		return shared.ErrInUse
	}
	delete(m.items, id)
	return nil
}

func newService() (*Service, *memoryRepo) {
	repo := &memoryRepo{items: map[int64]Vendor{}, inUse: map[int64]bool{}}
	return NewService(repo), repo
}

func TestCreateNormalizesVendor(t *testing.T) {
	svc, _ := newService()
	v, err := svc.Create(context.Background(), Vendor{Name: " Acme ", ContactEmail: " Sales@Acme.COM "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", v.Name)
	assert.Equal(t, "sales@acme.com", v.ContactEmail)
}

func TestCreateValidatesEmailAndName(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Create(context.Background(), Vendor{Name: "Acme", ContactEmail: "not-an-email"})
	var verr *internalShared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "contact_email")

	_, err = svc.Create(context.Background(), Vendor{})
	require.ErrorIs(t, err, internalShared.ErrValidation)

	_, err = svc.Create(context.Background(), Vendor{Name: "No Email"})
	require.NoError(t, err)
}

func TestDeleteVendorWithOrdersIsConflict(t *testing.T) {
	svc, repo := newService()
	v, err := svc.Create(context.Background(), Vendor{Name: "Busy"})
	require.NoError(t, err)
	repo.inUse[v.ID] = true

	err = svc.Delete(context.Background(), v.ID)
	require.ErrorIs(t, err, internalShared.ErrConflict)
}

func TestUpdateUnknownVendor(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Update(context.Background(), 9, Vendor{Name: "Ghost"})
	require.ErrorIs(t, err, internalShared.ErrNotFound)
}
