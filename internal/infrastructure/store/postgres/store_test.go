package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRecord_ToDomain(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	record := groupRecord{
		Seq:        7,
		ID:         "g-1",
		ScopeID:    "shop-a",
		Rule:       domain.RuleSKUBarcode,
		MemberIDs:  []string{"1", "2"},
		Similarity: 1,
		MatchedKey: "HD-1 | 111",
		CreatedAt:  created,
	}

	got := record.toDomain()

	assert.Equal(t, domain.StoredGroup{
		ID:      "g-1",
		ScopeID: "shop-a",
		Group: domain.DuplicateGroup{
			Rule:       domain.RuleSKUBarcode,
			MemberIDs:  []string{"1", "2"},
			Similarity: 1,
			MatchedKey: "HD-1 | 111",
		},
		CreatedAt: created,
	}, got)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "duplicate_groups", groupRecord{}.TableName())
	assert.Equal(t, "scan_statistics", statsRecord{}.TableName())
	assert.Equal(t, "item_backups", backupRecord{}.TableName())
}

// TestStore_Postgres runs against a live database when
// DUPELENS_TEST_POSTGRES_DSN is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("DUPELENS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DUPELENS_TEST_POSTGRES_DSN not set")
	}

	store, err := Open(dsn)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	scope := "test-" + time.Now().Format("150405.000000")

	require.NoError(t, store.CreateGroup(ctx, scope, domain.DuplicateGroup{
		Rule: domain.RuleSKU, MemberIDs: []string{"1", "2"}, Similarity: 1, MatchedKey: "HD-1",
	}))
	groups, err := store.ListGroups(ctx, scope, domain.RuleSKU)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"1", "2"}, groups[0].Group.MemberIDs)

	require.NoError(t, store.ClearGroups(ctx, scope))
	groups, err = store.ListGroups(ctx, scope, "")
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = store.GetStats(ctx, scope)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, total := range []int{10, 12} {
		require.NoError(t, store.UpsertStats(ctx, domain.ScanStatistics{
			ScopeID:      scope,
			Counts:       map[domain.Rule]int{domain.RuleSKU: 1},
			TotalScanned: total,
			LastScanAt:   time.Now(),
		}))
	}
	stats, err := store.GetStats(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalScanned)

	require.NoError(t, store.CreateBackup(ctx, domain.ItemBackup{
		ScopeID: scope, ItemID: "1", Snapshot: domain.CatalogItem{ID: "1", Title: "Hoodie"},
		Reason: "duplicate", Operation: domain.OperationMerge,
	}))
	backups, err := store.ListBackups(ctx, scope, "1")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "Hoodie", backups[0].Snapshot.Title)
}
