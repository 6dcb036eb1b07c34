package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are stored encoded and decoded into dest on Get.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogSource is the paginated upstream catalog. An empty cursor asks for
// the first page.
type CatalogSource interface {
	ListPage(ctx context.Context, after string, pageSize int) (*SourcePage, error)
}

// Limiter throttles outbound work per logical channel.
type Limiter interface {
	Acquire(ctx context.Context, key string) error
}

// DuplicateWriter is the write side of the store used during a scan.
// ClearGroups drops the groups of the previous scan of a scope.
type DuplicateWriter interface {
	ClearGroups(ctx context.Context, scopeID string) error
	CreateGroup(ctx context.Context, scopeID string, group DuplicateGroup) error
	UpsertStats(ctx context.Context, stats ScanStatistics) error
	CreateBackup(ctx context.Context, backup ItemBackup) error
}

// DuplicateRepository adds the read side used by the delivery layer.
type DuplicateRepository interface {
	DuplicateWriter
	ListGroups(ctx context.Context, scopeID string, rule Rule) ([]StoredGroup, error)
	GetStats(ctx context.Context, scopeID string) (*ScanStatistics, error)
	ListBackups(ctx context.Context, scopeID, itemID string) ([]ItemBackup, error)
	Close() error
}
