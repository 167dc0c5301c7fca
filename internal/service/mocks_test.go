package service

import (
	"context"
	"sync"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/domain"
)

// MockFetcher implements ProductFetcher for testing
type MockFetcher struct {
	mu       sync.Mutex
	products map[string]domain.Product
	err      error
	calls    int
	block    chan struct{}
	entered  chan struct{}
	ctxErr   error
}

func (m *MockFetcher) GetProduct(ctx context.Context, code string) (domain.Product, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return domain.Product{}, m.err
	}
	p, ok := m.products[code]
	if !ok {
		return domain.Product{}, errNoProduct
	}
	return p, nil
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockPoster implements PurchasePoster for testing
type MockPoster struct {
	result domain.PurchaseResult
	err    error

	calls   int
	lastReq domain.PurchaseRequest
	lastKey string
}

func (m *MockPoster) Purchase(_ context.Context, req domain.PurchaseRequest, key string) (domain.PurchaseResult, error) {
	m.calls++
	m.lastReq = req
	m.lastKey = key
	return m.result, m.err
}

// MockCache implements cache.ProductCache for testing
type MockCache struct {
	products map[string]domain.Product
	getErr   error
	setErr   error
	sets     int
}

func (m *MockCache) Get(_ context.Context, code string) (domain.Product, error) {
	if m.getErr != nil {
		return domain.Product{}, m.getErr
	}
	p, ok := m.products[code]
	if !ok {
		return domain.Product{}, cache.ErrCacheMiss
	}
	return p, nil
}

func (m *MockCache) Set(_ context.Context, p domain.Product) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	if m.products == nil {
		m.products = map[string]domain.Product{}
	}
	m.products[p.Code] = p
	return nil
}

func (m *MockCache) Delete(_ context.Context, code string) error {
	delete(m.products, code)
	return nil
}
