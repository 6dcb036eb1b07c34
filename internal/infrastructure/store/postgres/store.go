package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dupelens/backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store persists duplicate groups, scan statistics and item backups in
// PostgreSQL through gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	store, err := New(db)
	if err != nil {
		return nil, err
	}
	log.Printf("[STORE] PostgreSQL store ready")
	return store, nil
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&groupRecord{}, &statsRecord{}, &backupRecord{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) ClearGroups(ctx context.Context, scopeID string) error {
	return s.db.WithContext(ctx).Where("scope_id = ?", scopeID).Delete(&groupRecord{}).Error
}

func (s *Store) CreateGroup(ctx context.Context, scopeID string, group domain.DuplicateGroup) error {
	return s.db.WithContext(ctx).Create(&groupRecord{
		ID:         uuid.NewString(),
		ScopeID:    scopeID,
		Rule:       group.Rule,
		MemberIDs:  group.MemberIDs,
		Similarity: group.Similarity,
		MatchedKey: group.MatchedKey,
	}).Error
}

func (s *Store) UpsertStats(ctx context.Context, stats domain.ScanStatistics) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_id"}},
			UpdateAll: true,
		}).
		Create(&statsRecord{
			ScopeID:      stats.ScopeID,
			Counts:       stats.Counts,
			TotalScanned: stats.TotalScanned,
			LastScanAt:   stats.LastScanAt.UTC(),
		}).Error
}

func (s *Store) CreateBackup(ctx context.Context, backup domain.ItemBackup) error {
	return s.db.WithContext(ctx).Create(&backupRecord{
		ID:        uuid.NewString(),
		ScopeID:   backup.ScopeID,
		ItemID:    backup.ItemID,
		Snapshot:  backup.Snapshot,
		Reason:    backup.Reason,
		Operation: backup.Operation,
	}).Error
}

// ListGroups returns the stored groups of a scope, oldest first. An empty
// rule lists every rule.
func (s *Store) ListGroups(ctx context.Context, scopeID string, rule domain.Rule) ([]domain.StoredGroup, error) {
	query := s.db.WithContext(ctx).Where("scope_id = ?", scopeID)
	if rule != "" {
		query = query.Where("rule = ?", rule)
	}

	var records []groupRecord
	if err := query.Order("seq").Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]domain.StoredGroup, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) GetStats(ctx context.Context, scopeID string) (*domain.ScanStatistics, error) {
	var record statsRecord
	if err := s.db.WithContext(ctx).Where("scope_id = ?", scopeID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no statistics for %s", domain.ErrNotFound, scopeID)
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (s *Store) ListBackups(ctx context.Context, scopeID, itemID string) ([]domain.ItemBackup, error) {
	var records []backupRecord
	if err := s.db.WithContext(ctx).
		Where("scope_id = ? AND item_id = ?", scopeID, itemID).
		Order("seq").
		Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]domain.ItemBackup, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.DuplicateRepository = (*Store)(nil)
