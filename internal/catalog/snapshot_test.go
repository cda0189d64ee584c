package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

type mockLister struct {
	mu     sync.Mutex
	sweets []domain.Sweet
	err    error
	calls  int
}

func (m *mockLister) ListSweets(context.Context) ([]domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Sweet, len(m.sweets))
	copy(out, m.sweets)
	return out, nil
}

func (m *mockLister) set(sweets []domain.Sweet, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweets = sweets
	m.err = err
}

func TestRefresh_ReplacesWholesale(t *testing.T) {
	lister := &mockLister{sweets: []domain.Sweet{
		{ID: 1, Name: "Ladoo", Quantity: 3, Price: 100},
		{ID: 2, Name: "Rasgulla", Quantity: 5, Price: 90},
	}}
	snap := NewSnapshot(lister)

	require.NoError(t, snap.Refresh(context.Background()))
	assert.Len(t, snap.Items(), 2)

	sw, ok := snap.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, 3, sw.Quantity)

	lister.set([]domain.Sweet{{ID: 2, Name: "Rasgulla", Quantity: 4, Price: 90}}, nil)
	require.NoError(t, snap.Refresh(context.Background()))

	_, ok = snap.Lookup(1)
	assert.False(t, ok, "refresh replaces the collection, it does not merge")
	assert.Len(t, snap.Items(), 1)
}

func TestRefresh_FailureKeepsPriorSnapshot(t *testing.T) {
	lister := &mockLister{sweets: []domain.Sweet{{ID: 1, Quantity: 3, Price: 100}}}
	snap := NewSnapshot(lister)
	require.NoError(t, snap.Refresh(context.Background()))
	stamp := snap.RefreshedAt()

	lister.set(nil, &domain.FetchError{Err: assert.AnError})
	err := snap.Refresh(context.Background())

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Len(t, snap.Items(), 1, "failed refresh must not touch the previous snapshot")
	assert.Equal(t, stamp, snap.RefreshedAt())
}

func TestRefresh_FailureBeforeFirstSuccessLeavesEmpty(t *testing.T) {
	lister := &mockLister{err: &domain.FetchError{Err: assert.AnError}}
	snap := NewSnapshot(lister)

	require.Error(t, snap.Refresh(context.Background()))
	assert.Empty(t, snap.Items())
	assert.True(t, snap.RefreshedAt().IsZero())
}

func TestApplyPurchase_OverwritesSingleItem(t *testing.T) {
	lister := &mockLister{sweets: []domain.Sweet{
		{ID: 1, Quantity: 3, Price: 100},
		{ID: 2, Quantity: 5, Price: 90},
	}}
	snap := NewSnapshot(lister)
	require.NoError(t, snap.Refresh(context.Background()))

	snap.ApplyPurchase(domain.Sweet{ID: 1, Quantity: 1, Price: 100})

	sw, _ := snap.Lookup(1)
	assert.Equal(t, 1, sw.Quantity)
	other, _ := snap.Lookup(2)
	assert.Equal(t, 5, other.Quantity, "other items are untouched")
}

func TestApplyPurchase_UnknownIDIgnored(t *testing.T) {
	lister := &mockLister{sweets: []domain.Sweet{{ID: 1, Quantity: 3}}}
	snap := NewSnapshot(lister)
	require.NoError(t, snap.Refresh(context.Background()))

	snap.ApplyPurchase(domain.Sweet{ID: 99, Quantity: 7})
	assert.Len(t, snap.Items(), 1)
}

func TestItems_ReturnsCopy(t *testing.T) {
	lister := &mockLister{sweets: []domain.Sweet{{ID: 1, Quantity: 3}}}
	snap := NewSnapshot(lister)
	require.NoError(t, snap.Refresh(context.Background()))

	items := snap.Items()
	items[0].Quantity = 999

	sw, _ := snap.Lookup(1)
	assert.Equal(t, 3, sw.Quantity)
}
