package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists duplicate groups, scan statistics and item backups in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}

	log.Printf("[STORE] SQLite store ready at %s", path)
	return &Store{db: db}, nil
}

// now returns UTC time truncated to seconds (consistent with SQLite default).
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ClearGroups deletes every stored group of the scope.
func (s *Store) ClearGroups(ctx context.Context, scopeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM duplicate_groups WHERE scope_id = ?;`, scopeID)
	return err
}

// CreateGroup inserts one duplicate group for the scope.
func (s *Store) CreateGroup(ctx context.Context, scopeID string, group domain.DuplicateGroup) error {
	members, err := json.Marshal(group.MemberIDs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO duplicate_groups(id, scope_id, rule, member_ids, similarity, matched_key, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`, uuid.NewString(), scopeID, string(group.Rule), string(members), group.Similarity, group.MatchedKey, now())
	return err
}

// UpsertStats replaces the statistics row of the scope.
func (s *Store) UpsertStats(ctx context.Context, stats domain.ScanStatistics) error {
	counts, err := json.Marshal(stats.Counts)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO scan_statistics(scope_id, counts, total_scanned, last_scan_at)
	VALUES(?, ?, ?, ?)
	ON CONFLICT(scope_id) DO UPDATE SET
	 counts = excluded.counts,
	 total_scanned = excluded.total_scanned,
	 last_scan_at = excluded.last_scan_at;
	`, stats.ScopeID, string(counts), stats.TotalScanned, stats.LastScanAt.UTC())
	return err
}

// CreateBackup stores a snapshot of an item.
func (s *Store) CreateBackup(ctx context.Context, backup domain.ItemBackup) error {
	snapshot, err := json.Marshal(backup.Snapshot)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO item_backups(id, scope_id, item_id, snapshot, reason, operation, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?);
	`, uuid.NewString(), backup.ScopeID, backup.ItemID, string(snapshot), backup.Reason, backup.Operation, now())
	return err
}

// ListGroups returns the stored groups of a scope, oldest first. An empty
// rule lists every rule.
func (s *Store) ListGroups(ctx context.Context, scopeID string, rule domain.Rule) ([]domain.StoredGroup, error) {
	query := "SELECT id, scope_id, rule, member_ids, similarity, matched_key, created_at FROM duplicate_groups WHERE scope_id = ?"
	args := []interface{}{scopeID}
	if rule != "" {
		query += " AND rule = ?"
		args = append(args, string(rule))
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StoredGroup{}
	for rows.Next() {
		var (
			g       domain.StoredGroup
			r       string
			members string
		)
		if err := rows.Scan(&g.ID, &g.ScopeID, &r, &members, &g.Group.Similarity, &g.Group.MatchedKey, &g.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(members), &g.Group.MemberIDs); err != nil {
			return nil, fmt.Errorf("group %s: %w", g.ID, err)
		}
		g.Group.Rule = domain.Rule(r)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetStats returns the statistics of a scope or domain.ErrNotFound.
func (s *Store) GetStats(ctx context.Context, scopeID string) (*domain.ScanStatistics, error) {
	var (
		stats  domain.ScanStatistics
		counts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT scope_id, counts, total_scanned, last_scan_at FROM scan_statistics WHERE scope_id = ?`, scopeID,
	).Scan(&stats.ScopeID, &counts, &stats.TotalScanned, &stats.LastScanAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no statistics for %s", domain.ErrNotFound, scopeID)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(counts), &stats.Counts); err != nil {
		return nil, fmt.Errorf("statistics of %s: %w", scopeID, err)
	}
	return &stats, nil
}

// ListBackups returns the snapshots taken of an item, oldest first.
func (s *Store) ListBackups(ctx context.Context, scopeID, itemID string) ([]domain.ItemBackup, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT scope_id, item_id, snapshot, reason, operation FROM item_backups
	WHERE scope_id = ? AND item_id = ? ORDER BY created_at, rowid`, scopeID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ItemBackup
	for rows.Next() {
		var (
			b        domain.ItemBackup
			snapshot string
		)
		if err := rows.Scan(&b.ScopeID, &b.ItemID, &snapshot, &b.Reason, &b.Operation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(snapshot), &b.Snapshot); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ domain.DuplicateRepository = (*Store)(nil)
