package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleCatalog yields: title 1, sku 2, barcode 1, title_sku 1,
// title_barcode 1, sku_barcode 1.
func sampleCatalog() []domain.CatalogItem {
	return []domain.CatalogItem{
		item("1", "Blue Hoodie", variant("HD-1", "111")),
		item("2", "blue hoodie!", variant("HD-1", "111")),
		item("3", "Red Mug", variant("MUG", "222")),
		item("4", "Green Mug", variant("MUG", "333")),
	}
}

func TestAggregator_RunAll(t *testing.T) {
	agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})

	report, err := agg.RunAll(context.Background(), sampleCatalog())

	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalScanned)
	assert.Equal(t, map[domain.Rule]int{
		domain.RuleTitle:        1,
		domain.RuleSKU:          2,
		domain.RuleBarcode:      1,
		domain.RuleTitleSKU:     1,
		domain.RuleTitleBarcode: 1,
		domain.RuleSKUBarcode:   1,
	}, report.Counts())
	assert.Len(t, report.AllGroups(), 7)

	sku := report.Groups[domain.RuleSKU]
	assert.Equal(t, []string{"1", "2"}, sku[0].MemberIDs)
	assert.Equal(t, []string{"3", "4"}, sku[1].MemberIDs)
}

func TestAggregator_RunAllEmptyCatalog(t *testing.T) {
	agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})

	report, err := agg.RunAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Len(t, report.Groups, len(domain.AllRules))
	for _, rule := range domain.AllRules {
		groups, ok := report.Groups[rule]
		assert.True(t, ok, "rule %s missing from report", rule)
		assert.NotNil(t, groups, "rule %s should be an empty list", rule)
		assert.Empty(t, groups)
		assert.Zero(t, report.Counts()[rule])
	}
}

func TestAggregator_RunAllDoesNotMutateCatalog(t *testing.T) {
	agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})
	catalog := sampleCatalog()
	before := sampleCatalog()

	_, err := agg.RunAll(context.Background(), catalog)

	require.NoError(t, err)
	assert.Equal(t, before, catalog)
}

func TestAggregator_ThresholdDefaults(t *testing.T) {
	assert.Equal(t, DefaultTitleThreshold, NewAggregator(nil, AggregatorConfig{}).threshold)
	assert.Equal(t, DefaultTitleThreshold, NewAggregator(nil, AggregatorConfig{TitleThreshold: 1.5}).threshold)
	assert.Equal(t, 0.5, NewAggregator(nil, AggregatorConfig{TitleThreshold: 0.5}).threshold)
}

func TestAggregator_RuleFault(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})
		agg.rules[domain.RuleBarcode] = func([]domain.CatalogItem) []domain.DuplicateGroup {
			panic("index out of range")
		}

		report, err := agg.RunAll(context.Background(), sampleCatalog())

		assert.Nil(t, report)
		assert.ErrorIs(t, err, domain.ErrGroupingFault)
	})

	t.Run("singleton group", func(t *testing.T) {
		agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})
		agg.rules[domain.RuleSKU] = func([]domain.CatalogItem) []domain.DuplicateGroup {
			return []domain.DuplicateGroup{{Rule: domain.RuleSKU, MemberIDs: []string{"1"}}}
		}

		_, err := agg.RunAll(context.Background(), sampleCatalog())

		assert.ErrorIs(t, err, domain.ErrGroupingFault)
	})

	t.Run("overlapping groups", func(t *testing.T) {
		agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})
		agg.rules[domain.RuleSKU] = func([]domain.CatalogItem) []domain.DuplicateGroup {
			return []domain.DuplicateGroup{
				{Rule: domain.RuleSKU, MemberIDs: []string{"1", "2"}},
				{Rule: domain.RuleSKU, MemberIDs: []string{"2", "3"}},
			}
		}

		_, err := agg.RunAll(context.Background(), sampleCatalog())

		assert.ErrorIs(t, err, domain.ErrGroupingFault)
	})
}

func TestAggregator_RunAllCancelled(t *testing.T) {
	agg := NewAggregator(&MockDuplicateStore{}, AggregatorConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.RunAll(ctx, sampleCatalog())

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_Persist(t *testing.T) {
	store := &MockDuplicateStore{}
	agg := NewAggregator(store, AggregatorConfig{})
	report, err := agg.RunAll(context.Background(), sampleCatalog())
	require.NoError(t, err)
	scannedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	result := agg.Persist(context.Background(), "shop-a", report, scannedAt)

	assert.Equal(t, 8, result.Attempted, "7 groups plus the statistics")
	assert.Empty(t, result.Failures)
	assert.Len(t, store.groups, 7)
	require.Len(t, store.stats, 1)
	assert.Equal(t, "shop-a", store.stats[0].ScopeID)
	assert.Equal(t, 4, store.stats[0].TotalScanned)
	assert.Equal(t, scannedAt, store.stats[0].LastScanAt)
	assert.Equal(t, 2, store.stats[0].Counts[domain.RuleSKU])
}

func TestAggregator_PersistContinuesAfterFailure(t *testing.T) {
	store := &MockDuplicateStore{
		failGroup: func(g domain.DuplicateGroup) bool { return g.Rule == domain.RuleSKU },
	}
	agg := NewAggregator(store, AggregatorConfig{})
	report, err := agg.RunAll(context.Background(), sampleCatalog())
	require.NoError(t, err)

	result := agg.Persist(context.Background(), "shop-a", report, time.Now())

	assert.Equal(t, 8, result.Attempted)
	require.Len(t, result.Failures, 2)
	for _, f := range result.Failures {
		assert.Equal(t, domain.RuleSKU, f.Rule)
		assert.ErrorIs(t, f.Err, domain.ErrPersistenceFailure)
	}
	assert.Len(t, store.groups, 5, "other rules are still written")
	assert.Len(t, store.stats, 1)
}

func TestAggregator_PersistReplacesPreviousScan(t *testing.T) {
	store := &MockDuplicateStore{}
	agg := NewAggregator(store, AggregatorConfig{})
	report, err := agg.RunAll(context.Background(), sampleCatalog())
	require.NoError(t, err)

	agg.Persist(context.Background(), "shop-a", report, time.Now())
	result := agg.Persist(context.Background(), "shop-a", report, time.Now())

	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"shop-a", "shop-a"}, store.cleared)
	assert.Len(t, store.groups, 7, "second scan replaces the first")
}

func TestAggregator_PersistClearFailure(t *testing.T) {
	store := &MockDuplicateStore{clearErr: errors.New("database is locked")}
	agg := NewAggregator(store, AggregatorConfig{})
	report, err := agg.RunAll(context.Background(), sampleCatalog())
	require.NoError(t, err)

	result := agg.Persist(context.Background(), "shop-a", report, time.Now())

	assert.Equal(t, 1, result.Attempted)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, domain.ErrPersistenceFailure)
	assert.Empty(t, store.groups, "no groups written on top of the old scan")
	assert.Empty(t, store.stats)
}

func TestAggregator_PersistStatsFailure(t *testing.T) {
	store := &MockDuplicateStore{statsErr: errors.New("connection reset")}
	agg := NewAggregator(store, AggregatorConfig{})

	result := agg.Persist(context.Background(), "shop-a", &Report{Groups: map[domain.Rule][]domain.DuplicateGroup{}}, time.Now())

	assert.Equal(t, 1, result.Attempted)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, domain.ErrPersistenceFailure)
	assert.Empty(t, result.Failures[0].Rule)
}

func TestAggregator_Backup(t *testing.T) {
	backup := domain.ItemBackup{
		ScopeID:   "shop-a",
		ItemID:    "1",
		Snapshot:  item("1", "Blue Hoodie"),
		Reason:    "duplicate of 2",
		Operation: domain.OperationDelete,
	}

	t.Run("success", func(t *testing.T) {
		store := &MockDuplicateStore{}
		err := NewAggregator(store, AggregatorConfig{}).Backup(context.Background(), backup)

		require.NoError(t, err)
		assert.Equal(t, []domain.ItemBackup{backup}, store.backups)
	})

	t.Run("failure", func(t *testing.T) {
		store := &MockDuplicateStore{backupErr: errors.New("read-only")}
		err := NewAggregator(store, AggregatorConfig{}).Backup(context.Background(), backup)

		assert.ErrorIs(t, err, domain.ErrPersistenceFailure)
		assert.Contains(t, err.Error(), "read-only")
	})
}
