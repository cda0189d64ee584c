package shop

import (
	"context"
	"sync"

	"github.com/keshavthakur30/SweetShop/internal/cache"
	"github.com/keshavthakur30/SweetShop/internal/cart"
	"github.com/keshavthakur30/SweetShop/internal/domain"
	"github.com/keshavthakur30/SweetShop/internal/events"
	"github.com/keshavthakur30/SweetShop/internal/history"
)

// mockCatalog implements CatalogClient with a mutable stock table and
// applies purchases the way the real service does: decrement and
// return the updated sweet.
type mockCatalog struct {
	mu        sync.Mutex
	sweets    map[int64]domain.Sweet
	order     []int64
	listErr   error
	buyErr    map[int64]error
	purchased []int64
}

func newMockCatalog(sweets ...domain.Sweet) *mockCatalog {
	m := &mockCatalog{
		sweets: make(map[int64]domain.Sweet, len(sweets)),
		buyErr: make(map[int64]error),
	}
	for _, sw := range sweets {
		m.sweets[sw.ID] = sw
		m.order = append(m.order, sw.ID)
	}
	return m
}

func (m *mockCatalog) ListSweets(context.Context) ([]domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Sweet, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sweets[id])
	}
	return out, nil
}

func (m *mockCatalog) Purchase(_ context.Context, sweetID int64, quantity int) (domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchased = append(m.purchased, sweetID)
	if err := m.buyErr[sweetID]; err != nil {
		return domain.Sweet{}, err
	}
	sw, ok := m.sweets[sweetID]
	if !ok {
		return domain.Sweet{}, &domain.PurchaseError{SweetID: sweetID, Reason: domain.ReasonItemNotFound}
	}
	if sw.Quantity < quantity {
		return domain.Sweet{}, &domain.PurchaseError{SweetID: sweetID, Reason: domain.ReasonOutOfStock}
	}
	sw.Quantity -= quantity
	m.sweets[sweetID] = sw
	return sw, nil
}

func (m *mockCatalog) calls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.purchased))
	copy(out, m.purchased)
	return out
}

// memoryCache is an in-process CartCache standing in for Redis.
type memoryCache struct {
	mu    sync.Mutex
	carts map[string][]cart.Line
}

func newMemoryCache() *memoryCache {
	return &memoryCache{carts: make(map[string][]cart.Line)}
}

func (m *memoryCache) Get(_ context.Context, sessionID string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.carts[sessionID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return lines, nil
}

func (m *memoryCache) Set(_ context.Context, sessionID string, lines []cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = lines
	return nil
}

func (m *memoryCache) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

// mockHistory records SaveRun calls.
type mockHistory struct {
	mu   sync.Mutex
	runs []history.Record
	err  error
}

func (m *mockHistory) SaveRun(_ context.Context, rec *history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, *rec)
	return nil
}

func (m *mockHistory) RunsBySession(_ context.Context, sessionID string) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []history.Record
	for _, rec := range m.runs {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// mockPublisher records published checkout events.
type mockPublisher struct {
	mu     sync.Mutex
	events []events.CheckoutEvent
	err    error
}

func (m *mockPublisher) PublishCheckout(_ context.Context, ev events.CheckoutEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}
