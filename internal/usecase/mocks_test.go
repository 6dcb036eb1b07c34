package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dupelens/backend/internal/domain"
)

// pageCall records one ListPage invocation.
type pageCall struct {
	After    string
	PageSize int
}

// MockCatalogSource serves products in pages. Cursors are the index of the
// next product. Call numbers in throttleOn (1-based) answer with throttleErr.
type MockCatalogSource struct {
	mu          sync.Mutex
	products    []domain.SourceProduct
	calls       []pageCall
	throttleOn  map[int]bool
	throttleErr error
	failOn      map[int]error
	alwaysErr   error
}

func newMockCatalogSource(n int) *MockCatalogSource {
	products := make([]domain.SourceProduct, n)
	for i := range products {
		products[i] = domain.SourceProduct{
			ID:    fmt.Sprintf("p%d", i+1),
			Title: fmt.Sprintf("Product %d", i+1),
			Variants: []domain.SourceVariant{
				{ID: fmt.Sprintf("v%d", i+1), Price: "10.00"},
			},
		}
	}
	return &MockCatalogSource{
		products:    products,
		throttleOn:  map[int]bool{},
		throttleErr: fmt.Errorf("%w: status 429", domain.ErrThrottled),
		failOn:      map[int]error{},
	}
}

func (m *MockCatalogSource) ListPage(ctx context.Context, after string, pageSize int) (*domain.SourcePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, pageCall{After: after, PageSize: pageSize})
	call := len(m.calls)

	if m.alwaysErr != nil {
		return nil, m.alwaysErr
	}
	if m.throttleOn[call] {
		return nil, m.throttleErr
	}
	if err, ok := m.failOn[call]; ok {
		return nil, err
	}

	start := 0
	if after != "" {
		var err error
		if start, err = strconv.Atoi(after); err != nil {
			return nil, errors.New("bad cursor")
		}
	}
	end := min(start+pageSize, len(m.products))

	page := &domain.SourcePage{
		Products:    append([]domain.SourceProduct(nil), m.products[start:end]...),
		HasNextPage: end < len(m.products),
	}
	if page.HasNextPage {
		page.EndCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (m *MockCatalogSource) Calls() []pageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pageCall(nil), m.calls...)
}

// MockLimiter counts acquisitions per channel.
type MockLimiter struct {
	mu       sync.Mutex
	acquired map[string]int
	err      error
}

func newMockLimiter() *MockLimiter {
	return &MockLimiter{acquired: map[string]int{}}
}

func (m *MockLimiter) Acquire(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.acquired[key]++
	return nil
}

func (m *MockLimiter) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired[key]
}

// MockDuplicateStore records writes; failGroup decides which groups fail.
type MockDuplicateStore struct {
	mu        sync.Mutex
	groups    []domain.DuplicateGroup
	stats     []domain.ScanStatistics
	backups   []domain.ItemBackup
	failGroup func(domain.DuplicateGroup) bool
	statsErr  error
	backupErr error
	clearErr  error
	cleared   []string
}

func (m *MockDuplicateStore) ClearGroups(ctx context.Context, scopeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = append(m.cleared, scopeID)
	m.groups = nil
	return nil
}

func (m *MockDuplicateStore) CreateGroup(ctx context.Context, scopeID string, group domain.DuplicateGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGroup != nil && m.failGroup(group) {
		return errors.New("disk full")
	}
	m.groups = append(m.groups, group)
	return nil
}

func (m *MockDuplicateStore) UpsertStats(ctx context.Context, stats domain.ScanStatistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return m.statsErr
	}
	m.stats = append(m.stats, stats)
	return nil
}

func (m *MockDuplicateStore) CreateBackup(ctx context.Context, backup domain.ItemBackup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupErr != nil {
		return m.backupErr
	}
	m.backups = append(m.backups, backup)
	return nil
}

// MockCacheRepository is a map-backed domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string]interface{}
	setError error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string]interface{})}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return domain.ErrCacheMiss
	}
	item, ok := value.(domain.CatalogItem)
	target, isItem := dest.(*domain.CatalogItem)
	if !ok || !isItem {
		return errors.New("mock cache only stores catalog items")
	}
	*target = item
	return nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}
