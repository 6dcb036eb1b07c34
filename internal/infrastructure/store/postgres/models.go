package postgres

import (
	"time"

	"github.com/dupelens/backend/internal/domain"
)

// groupRecord is a persisted duplicate group.
type groupRecord struct {
	Seq        uint        `gorm:"primaryKey"`
	ID         string      `gorm:"uniqueIndex;not null"`
	ScopeID    string      `gorm:"index:idx_groups_scope_rule;not null"`
	Rule       domain.Rule `gorm:"index:idx_groups_scope_rule;not null"`
	MemberIDs  []string    `gorm:"serializer:json;not null"`
	Similarity float64     `gorm:"not null"`
	MatchedKey string
	CreatedAt  time.Time
}

func (groupRecord) TableName() string {
	return "duplicate_groups"
}

func (r groupRecord) toDomain() domain.StoredGroup {
	return domain.StoredGroup{
		ID:      r.ID,
		ScopeID: r.ScopeID,
		Group: domain.DuplicateGroup{
			Rule:       r.Rule,
			MemberIDs:  r.MemberIDs,
			Similarity: r.Similarity,
			MatchedKey: r.MatchedKey,
		},
		CreatedAt: r.CreatedAt,
	}
}

// statsRecord holds one row per scope.
type statsRecord struct {
	ScopeID      string              `gorm:"primaryKey"`
	Counts       map[domain.Rule]int `gorm:"serializer:json;not null"`
	TotalScanned int                 `gorm:"not null"`
	LastScanAt   time.Time           `gorm:"not null"`
}

func (statsRecord) TableName() string {
	return "scan_statistics"
}

func (r statsRecord) toDomain() *domain.ScanStatistics {
	return &domain.ScanStatistics{
		ScopeID:      r.ScopeID,
		Counts:       r.Counts,
		TotalScanned: r.TotalScanned,
		LastScanAt:   r.LastScanAt,
	}
}

// backupRecord is a snapshot taken before a destructive operation.
type backupRecord struct {
	Seq       uint               `gorm:"primaryKey"`
	ID        string             `gorm:"uniqueIndex;not null"`
	ScopeID   string             `gorm:"index:idx_backups_scope_item;not null"`
	ItemID    string             `gorm:"index:idx_backups_scope_item;not null"`
	Snapshot  domain.CatalogItem `gorm:"serializer:json;not null"`
	Reason    string             `gorm:"not null"`
	Operation string             `gorm:"not null"`
	CreatedAt time.Time
}

func (backupRecord) TableName() string {
	return "item_backups"
}

func (r backupRecord) toDomain() domain.ItemBackup {
	return domain.ItemBackup{
		ScopeID:   r.ScopeID,
		ItemID:    r.ItemID,
		Snapshot:  r.Snapshot,
		Reason:    r.Reason,
		Operation: r.Operation,
	}
}
