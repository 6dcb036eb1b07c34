package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dupelens/backend/internal/domain"
)

// SourceFactory returns the catalog source of a scope.
type SourceFactory func(scopeID string) (domain.CatalogSource, error)

// ScanServiceConfig holds configuration for the scan service
type ScanServiceConfig struct {
	MaxItems   int
	CatalogTTL time.Duration
	Fetcher    FetcherConfig
	Aggregator AggregatorConfig
}

// ScanResult is what one scan reports back to the caller.
type ScanResult struct {
	ScopeID             string              `json:"scopeId"`
	Counts              map[domain.Rule]int `json:"counts"`
	TotalScanned        int                 `json:"totalScanned"`
	GroupsFound         int                 `json:"groupsFound"`
	PersistenceFailures int                 `json:"persistenceFailures"`
	StartedAt           time.Time           `json:"startedAt"`
	Duration            time.Duration       `json:"duration"`
	Report              *Report             `json:"-"`
	Failures            []PersistFailure    `json:"-"`
}

// Succeeded reports whether every write of the scan went through.
func (r *ScanResult) Succeeded() bool {
	return r.PersistenceFailures == 0
}

// ScanService runs the duplicate-detection pipeline for a scope:
// fetch -> group -> persist.
type ScanService struct {
	sources    SourceFactory
	limiter    domain.Limiter
	cache      domain.CacheRepository
	aggregator *Aggregator
	fetcherCfg FetcherConfig
	maxItems   int
	catalogTTL time.Duration
}

// NewScanService creates a new scan service with dependencies. The limiter is
// shared by every scan the service runs.
func NewScanService(
	sources SourceFactory,
	limiter domain.Limiter,
	cache domain.CacheRepository,
	store domain.DuplicateWriter,
	config ScanServiceConfig,
) *ScanService {
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	catalogTTL := config.CatalogTTL
	if catalogTTL == 0 {
		catalogTTL = 24 * time.Hour
	}

	return &ScanService{
		sources:    sources,
		limiter:    limiter,
		cache:      cache,
		aggregator: NewAggregator(store, config.Aggregator),
		fetcherCfg: config.Fetcher,
		maxItems:   maxItems,
		catalogTTL: catalogTTL,
	}
}

// Scan fetches the scope's catalog, groups duplicates and persists them.
// Fetch and grouping errors fail the scan; persistence errors are counted
// in the result instead.
func (s *ScanService) Scan(ctx context.Context, scopeID string) (*ScanResult, error) {
	if strings.TrimSpace(scopeID) == "" {
		return nil, domain.ErrInvalidRequest
	}

	started := time.Now()
	log.Printf("[SCAN] Starting scan for %s (max %d items)", scopeID, s.maxItems)

	source, err := s.sources(scopeID)
	if err != nil {
		return nil, fmt.Errorf("catalog source for %s: %w", scopeID, err)
	}

	fetcherCfg := s.fetcherCfg
	if fetcherCfg.Channel == "" {
		fetcherCfg.Channel = DefaultLimiterChannel + ":" + scopeID
	}
	catalog, err := NewCatalogFetcher(source, s.limiter, fetcherCfg).FetchAll(ctx, s.maxItems)
	if err != nil {
		scansTotal.WithLabelValues(scanStatus(err)).Inc()
		return nil, err
	}
	itemsScanned.Add(float64(len(catalog)))

	report, err := s.aggregator.RunAll(ctx, catalog)
	if err != nil {
		scansTotal.WithLabelValues(scanStatus(err)).Inc()
		return nil, err
	}

	s.cacheCatalog(ctx, scopeID, catalog)

	persisted := s.aggregator.Persist(ctx, scopeID, report, started.UTC())

	result := &ScanResult{
		ScopeID:             scopeID,
		Counts:              report.Counts(),
		TotalScanned:        report.TotalScanned,
		GroupsFound:         len(report.AllGroups()),
		PersistenceFailures: len(persisted.Failures),
		StartedAt:           started.UTC(),
		Duration:            time.Since(started),
		Report:              report,
		Failures:            persisted.Failures,
	}

	for rule, count := range result.Counts {
		groupsFound.WithLabelValues(string(rule)).Add(float64(count))
	}
	persistFailures.Add(float64(result.PersistenceFailures))
	scanDuration.Observe(result.Duration.Seconds())
	if result.Succeeded() {
		scansTotal.WithLabelValues("success").Inc()
	} else {
		scansTotal.WithLabelValues("partial").Inc()
	}

	log.Printf("[SCAN] Finished %s: %d items, %d groups, %d persistence failures in %s",
		scopeID, result.TotalScanned, result.GroupsFound, result.PersistenceFailures, result.Duration.Round(time.Millisecond))
	return result, nil
}

// BackupItem snapshots an item from the scope's last scanned catalog before a
// destructive operation.
func (s *ScanService) BackupItem(ctx context.Context, scopeID, itemID, reason, operation string) error {
	if strings.TrimSpace(scopeID) == "" || strings.TrimSpace(itemID) == "" || strings.TrimSpace(reason) == "" {
		return domain.ErrInvalidRequest
	}
	switch operation {
	case domain.OperationDelete, domain.OperationMerge, domain.OperationUpdate:
	default:
		return fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidRequest, operation)
	}

	var item domain.CatalogItem
	if err := s.cache.Get(ctx, catalogCacheKey(scopeID, itemID), &item); err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return fmt.Errorf("%w: item %s not in last scan of %s", domain.ErrNotFound, itemID, scopeID)
		}
		return err
	}

	return s.aggregator.Backup(ctx, domain.ItemBackup{
		ScopeID:   scopeID,
		ItemID:    itemID,
		Snapshot:  item,
		Reason:    reason,
		Operation: operation,
	})
}

// cacheCatalog keeps the scanned items for later backups. Caching is best
// effort and never fails the scan.
func (s *ScanService) cacheCatalog(ctx context.Context, scopeID string, catalog []domain.CatalogItem) {
	for _, item := range catalog {
		if err := s.cache.Set(ctx, catalogCacheKey(scopeID, item.ID), item, s.catalogTTL); err != nil {
			log.Printf("[SCAN] Failed to cache item %s of %s: %v", item.ID, scopeID, err)
		}
	}
}

// scanStatus is the metrics label of a failed scan.
func scanStatus(err error) string {
	var ingestErr *domain.IngestionError
	switch {
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	case errors.As(err, &ingestErr):
		return "ingestion_error"
	case errors.Is(err, domain.ErrGroupingFault):
		return "grouping_fault"
	default:
		return "error"
	}
}

// catalogCacheKey format: "catalog:{scope}:{item id}"
func catalogCacheKey(scopeID, itemID string) string {
	return fmt.Sprintf("catalog:%s:%s", scopeID, itemID)
}
