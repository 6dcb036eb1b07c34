package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateGroup(ctx, "shop-a", domain.DuplicateGroup{
		Rule: domain.RuleSKU, MemberIDs: []string{"1", "2"}, Similarity: 1, MatchedKey: "HD-1",
	}))
	require.NoError(t, store.CreateGroup(ctx, "shop-a", domain.DuplicateGroup{
		Rule: domain.RuleTitle, MemberIDs: []string{"3", "4", "5"}, Similarity: 0.9,
	}))
	require.NoError(t, store.CreateGroup(ctx, "shop-b", domain.DuplicateGroup{
		Rule: domain.RuleSKU, MemberIDs: []string{"9", "10"}, Similarity: 1,
	}))

	all, err := store.ListGroups(ctx, "shop-a", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotEmpty(t, all[0].ID)
	assert.NotEqual(t, all[0].ID, all[1].ID)
	assert.Equal(t, "shop-a", all[0].ScopeID)
	assert.Equal(t, []string{"1", "2"}, all[0].Group.MemberIDs)
	assert.Equal(t, "HD-1", all[0].Group.MatchedKey)
	assert.False(t, all[0].CreatedAt.IsZero())

	title, err := store.ListGroups(ctx, "shop-a", domain.RuleTitle)
	require.NoError(t, err)
	require.Len(t, title, 1)
	assert.Equal(t, []string{"3", "4", "5"}, title[0].Group.MemberIDs)
	assert.InDelta(t, 0.9, title[0].Group.Similarity, 1e-9)

	none, err := store.ListGroups(ctx, "shop-c", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_ClearGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, scope := range []string{"shop-a", "shop-a", "shop-b"} {
		require.NoError(t, store.CreateGroup(ctx, scope, domain.DuplicateGroup{
			Rule: domain.RuleSKU, MemberIDs: []string{"1", "2"}, Similarity: 1,
		}))
	}

	require.NoError(t, store.ClearGroups(ctx, "shop-a"))
	require.NoError(t, store.ClearGroups(ctx, "shop-c"), "clearing an unknown scope is a no-op")

	a, err := store.ListGroups(ctx, "shop-a", "")
	require.NoError(t, err)
	assert.Empty(t, a)

	b, err := store.ListGroups(ctx, "shop-b", "")
	require.NoError(t, err)
	assert.Len(t, b, 1)
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetStats(ctx, "shop-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertStats(ctx, domain.ScanStatistics{
		ScopeID:      "shop-a",
		Counts:       map[domain.Rule]int{domain.RuleSKU: 2, domain.RuleTitle: 1},
		TotalScanned: 40,
		LastScanAt:   first,
	}))

	second := first.Add(time.Hour)
	require.NoError(t, store.UpsertStats(ctx, domain.ScanStatistics{
		ScopeID:      "shop-a",
		Counts:       map[domain.Rule]int{domain.RuleSKU: 3},
		TotalScanned: 41,
		LastScanAt:   second,
	}))

	stats, err := store.GetStats(ctx, "shop-a")
	require.NoError(t, err)
	assert.Equal(t, 41, stats.TotalScanned)
	assert.Equal(t, map[domain.Rule]int{domain.RuleSKU: 3}, stats.Counts)
	assert.True(t, second.Equal(stats.LastScanAt), "LastScanAt = %s", stats.LastScanAt)
}

func TestStore_Backups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snapshot := domain.CatalogItem{
		ID:    "p1",
		Title: "Blue Hoodie",
		Variants: []domain.Variant{
			{ID: "v1", SKU: "HD-1", Price: decimal.RequireFromString("19.99")},
		},
	}
	require.NoError(t, store.CreateBackup(ctx, domain.ItemBackup{
		ScopeID: "shop-a", ItemID: "p1", Snapshot: snapshot, Reason: "duplicate", Operation: domain.OperationDelete,
	}))

	backups, err := store.ListBackups(ctx, "shop-a", "p1")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "duplicate", backups[0].Reason)
	assert.Equal(t, domain.OperationDelete, backups[0].Operation)
	assert.Equal(t, "Blue Hoodie", backups[0].Snapshot.Title)
	assert.True(t, decimal.RequireFromString("19.99").Equal(backups[0].Snapshot.Variants[0].Price))

	others, err := store.ListBackups(ctx, "shop-a", "p2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestOpen_ReappliesMigrations(t *testing.T) {
	path := t.TempDir() + "/dupes.db"

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateGroup(context.Background(), "shop-a", domain.DuplicateGroup{
		Rule: domain.RuleBarcode, MemberIDs: []string{"1", "2"}, Similarity: 1,
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	groups, err := reopened.ListGroups(context.Background(), "shop-a", domain.RuleBarcode)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}
