package usecase

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// AggregatorConfig holds configuration for the result aggregator
type AggregatorConfig struct {
	TitleThreshold     float64
	EnableDebugLogging bool
}

// Report holds the groups of every rule for one catalog.
type Report struct {
	Groups       map[domain.Rule][]domain.DuplicateGroup
	TotalScanned int
}

// Counts returns the number of groups per rule.
func (r *Report) Counts() map[domain.Rule]int {
	counts := make(map[domain.Rule]int, len(domain.AllRules))
	for _, rule := range domain.AllRules {
		counts[rule] = len(r.Groups[rule])
	}
	return counts
}

// AllGroups returns every group, rules in report order.
func (r *Report) AllGroups() []domain.DuplicateGroup {
	var all []domain.DuplicateGroup
	for _, rule := range domain.AllRules {
		all = append(all, r.Groups[rule]...)
	}
	return all
}

// PersistFailure records one write that did not succeed.
type PersistFailure struct {
	Rule      domain.Rule
	MemberIDs []string
	Err       error
}

// PersistResult summarizes the writes of one scan.
type PersistResult struct {
	Attempted int
	Failures  []PersistFailure
}

// Aggregator runs every rule over a catalog and hands the results to the store.
type Aggregator struct {
	store     domain.DuplicateWriter
	rules     map[domain.Rule]RuleFunc
	threshold float64
	debug     bool
}

// NewAggregator creates an aggregator writing through store
func NewAggregator(store domain.DuplicateWriter, config AggregatorConfig) *Aggregator {
	threshold := config.TitleThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultTitleThreshold
	}

	return &Aggregator{
		store:     store,
		threshold: threshold,
		debug:     config.EnableDebugLogging,
		rules: map[domain.Rule]RuleFunc{
			domain.RuleTitle: func(items []domain.CatalogItem) []domain.DuplicateGroup {
				return GroupByTitle(items, threshold)
			},
			domain.RuleSKU:          GroupBySKU,
			domain.RuleBarcode:      GroupByBarcode,
			domain.RuleTitleSKU:     GroupByTitleSKU,
			domain.RuleTitleBarcode: GroupByTitleBarcode,
			domain.RuleSKUBarcode:   GroupBySKUBarcode,
		},
	}
}

// RunAll applies the six rules to catalog concurrently and waits for all of
// them. The rules only read the catalog. A panicking rule fails the run with
// ErrGroupingFault.
func (a *Aggregator) RunAll(ctx context.Context, catalog []domain.CatalogItem) (*Report, error) {
	results := make([][]domain.DuplicateGroup, len(domain.AllRules))

	g, gCtx := errgroup.WithContext(ctx)
	for i, rule := range domain.AllRules {
		i, rule := i, rule
		fn := a.rules[rule]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[GROUP] Rule %s panicked: %v\n%s", rule, r, debug.Stack())
					err = fmt.Errorf("%w: rule %s: %v", domain.ErrGroupingFault, rule, r)
				}
			}()
			if err := gCtx.Err(); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
			}

			start := time.Now()
			groups := fn(catalog)
			if err := checkGroups(rule, groups); err != nil {
				return err
			}
			results[i] = groups

			if a.debug {
				log.Printf("[GROUP] Rule %s: %d groups in %s", rule, len(groups), time.Since(start))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Groups:       make(map[domain.Rule][]domain.DuplicateGroup, len(domain.AllRules)),
		TotalScanned: len(catalog),
	}
	for i, rule := range domain.AllRules {
		report.Groups[rule] = results[i]
		if report.Groups[rule] == nil {
			report.Groups[rule] = []domain.DuplicateGroup{}
		}
	}
	return report, nil
}

// checkGroups enforces the per-rule invariants: at least two distinct
// members per group and no item in two groups.
func checkGroups(rule domain.Rule, groups []domain.DuplicateGroup) error {
	seen := make(map[string]bool)
	for _, g := range groups {
		if len(g.MemberIDs) < 2 {
			return fmt.Errorf("%w: rule %s emitted a group of %d", domain.ErrGroupingFault, rule, len(g.MemberIDs))
		}
		for _, id := range g.MemberIDs {
			if seen[id] {
				return fmt.Errorf("%w: rule %s placed item %s twice", domain.ErrGroupingFault, rule, id)
			}
			seen[id] = true
		}
	}
	return nil
}

// Persist replaces the stored groups of the scope: it clears the previous
// scan's groups, writes every group with its own CreateGroup call, then the
// scan statistics. Failed writes are collected and never stop the remaining
// ones. If the clear fails nothing else is written.
func (a *Aggregator) Persist(ctx context.Context, scopeID string, report *Report, scannedAt time.Time) PersistResult {
	var result PersistResult

	if err := a.store.ClearGroups(ctx, scopeID); err != nil {
		log.Printf("[SCAN] Failed to clear previous groups for %s: %v", scopeID, err)
		result.Attempted++
		result.Failures = append(result.Failures, PersistFailure{
			Err: fmt.Errorf("%w: clear groups: %w", domain.ErrPersistenceFailure, err),
		})
		return result
	}

	for _, group := range report.AllGroups() {
		result.Attempted++
		if err := a.store.CreateGroup(ctx, scopeID, group); err != nil {
			log.Printf("[SCAN] Failed to persist %s group %v: %v", group.Rule, group.MemberIDs, err)
			result.Failures = append(result.Failures, PersistFailure{
				Rule:      group.Rule,
				MemberIDs: group.MemberIDs,
				Err:       fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err),
			})
		}
	}

	stats := domain.ScanStatistics{
		ScopeID:      scopeID,
		Counts:       report.Counts(),
		TotalScanned: report.TotalScanned,
		LastScanAt:   scannedAt,
	}
	result.Attempted++
	if err := a.store.UpsertStats(ctx, stats); err != nil {
		log.Printf("[SCAN] Failed to upsert statistics for %s: %v", scopeID, err)
		result.Failures = append(result.Failures, PersistFailure{
			Err: fmt.Errorf("%w: statistics: %w", domain.ErrPersistenceFailure, err),
		})
	}

	return result
}

// Backup snapshots an item before a destructive action elsewhere in the
// application. Scans never call it.
func (a *Aggregator) Backup(ctx context.Context, backup domain.ItemBackup) error {
	if err := a.store.CreateBackup(ctx, backup); err != nil {
		return fmt.Errorf("%w: backup of %s: %w", domain.ErrPersistenceFailure, backup.ItemID, err)
	}
	return nil
}
