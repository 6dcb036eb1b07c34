package domain

import "time"

// Rule names one of the duplicate matching policies.
type Rule string

const (
	RuleTitle        Rule = "title"
	RuleSKU          Rule = "sku"
	RuleBarcode      Rule = "barcode"
	RuleTitleSKU     Rule = "title_sku"
	RuleTitleBarcode Rule = "title_barcode"
	RuleSKUBarcode   Rule = "sku_barcode"
)

// AllRules lists every rule in report order.
var AllRules = []Rule{
	RuleTitle,
	RuleSKU,
	RuleBarcode,
	RuleTitleSKU,
	RuleTitleBarcode,
	RuleSKUBarcode,
}

// ParseRule validates a rule name.
func ParseRule(s string) (Rule, error) {
	for _, r := range AllRules {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ErrInvalidRequest
}

// DuplicateGroup is a set of catalog items judged to be the same product
// under one rule. Members are distinct and in catalog order.
type DuplicateGroup struct {
	Rule       Rule     `json:"rule"`
	MemberIDs  []string `json:"memberIds"`
	Similarity float64  `json:"similarity"`
	MatchedKey string   `json:"matchedKey,omitempty"`
}

// StoredGroup is a persisted DuplicateGroup.
type StoredGroup struct {
	ID        string         `json:"id"`
	ScopeID   string         `json:"scopeId"`
	Group     DuplicateGroup `json:"group"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ScanStatistics are the rolling counters kept per scope.
type ScanStatistics struct {
	ScopeID      string       `json:"scopeId"`
	Counts       map[Rule]int `json:"counts"`
	TotalScanned int          `json:"totalScanned"`
	LastScanAt   time.Time    `json:"lastScanAt"`
}

// Operation kinds recorded alongside item backups.
const (
	OperationDelete = "delete"
	OperationMerge  = "merge"
	OperationUpdate = "update"
)

// ItemBackup is a snapshot taken before a destructive action on an item.
type ItemBackup struct {
	ScopeID   string      `json:"scopeId"`
	ItemID    string      `json:"itemId"`
	Snapshot  CatalogItem `json:"snapshot"`
	Reason    string      `json:"reason"`
	Operation string      `json:"operation"`
}
