package usecase

import (
	"strings"

	"github.com/dupelens/backend/internal/domain"
)

// keySeparator joins composite key parts. It cannot occur in a normalized
// title and is vanishingly rare in SKUs and barcodes.
const keySeparator = "\x1f"

// RuleFunc turns a catalog into the duplicate groups of one rule.
type RuleFunc func(items []domain.CatalogItem) []domain.DuplicateGroup

// GroupByTitle clusters items whose normalized titles are at least threshold
// similar. Items are visited in catalog order; the first unconsumed item
// anchors a group and every later unconsumed item close enough to the anchor
// joins it. The group score is the lowest anchor-to-member similarity.
func GroupByTitle(items []domain.CatalogItem, threshold float64) []domain.DuplicateGroup {
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = NormalizeText(item.Title)
	}

	consumed := make([]bool, len(items))
	var groups []domain.DuplicateGroup

	for i := range items {
		if consumed[i] || titles[i] == "" {
			continue
		}

		members := []string{items[i].ID}
		score := 1.0
		for j := i + 1; j < len(items); j++ {
			if consumed[j] || items[j].ID == items[i].ID {
				continue
			}
			sim := Similarity(titles[i], titles[j])
			if sim < threshold {
				continue
			}
			consumed[j] = true
			members = append(members, items[j].ID)
			score = min(score, sim)
		}

		if len(members) < 2 {
			continue
		}
		consumed[i] = true
		groups = append(groups, domain.DuplicateGroup{
			Rule:       domain.RuleTitle,
			MemberIDs:  members,
			Similarity: score,
		})
	}

	return groups
}

// GroupBySKU groups items sharing a trimmed variant SKU.
func GroupBySKU(items []domain.CatalogItem) []domain.DuplicateGroup {
	return groupByExactKey(domain.RuleSKU, items, func(_ string, v domain.Variant) string {
		return v.TrimmedSKU()
	})
}

// GroupByBarcode groups items sharing a trimmed variant barcode.
func GroupByBarcode(items []domain.CatalogItem) []domain.DuplicateGroup {
	return groupByExactKey(domain.RuleBarcode, items, func(_ string, v domain.Variant) string {
		return v.TrimmedBarcode()
	})
}

// GroupByTitleSKU groups items sharing both normalized title and SKU.
func GroupByTitleSKU(items []domain.CatalogItem) []domain.DuplicateGroup {
	return groupByExactKey(domain.RuleTitleSKU, items, func(title string, v domain.Variant) string {
		return compositeKey(title, v.TrimmedSKU())
	})
}

// GroupByTitleBarcode groups items sharing both normalized title and barcode.
func GroupByTitleBarcode(items []domain.CatalogItem) []domain.DuplicateGroup {
	return groupByExactKey(domain.RuleTitleBarcode, items, func(title string, v domain.Variant) string {
		return compositeKey(title, v.TrimmedBarcode())
	})
}

// GroupBySKUBarcode groups items sharing the same SKU and barcode on one variant.
func GroupBySKUBarcode(items []domain.CatalogItem) []domain.DuplicateGroup {
	return groupByExactKey(domain.RuleSKUBarcode, items, func(_ string, v domain.Variant) string {
		return compositeKey(v.TrimmedSKU(), v.TrimmedBarcode())
	})
}

// compositeKey returns "" unless every part is present.
func compositeKey(parts ...string) string {
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.Join(parts, keySeparator)
}

// groupByExactKey maps every non-empty variant key to the distinct items that
// own it, then emits one group per key shared by two or more items. Keys are
// visited in first-seen order and an item already placed in a group for this
// rule is not placed again, so groups never overlap.
func groupByExactKey(
	rule domain.Rule,
	items []domain.CatalogItem,
	keyOf func(normalizedTitle string, v domain.Variant) string,
) []domain.DuplicateGroup {
	owners := make(map[string][]int)
	var order []string

	for i, item := range items {
		title := NormalizeText(item.Title)
		for _, v := range item.Variants {
			key := keyOf(title, v)
			if key == "" {
				continue
			}
			idx, seen := owners[key]
			if !seen {
				order = append(order, key)
			}
			// the same item may contribute several variants with one key
			if len(idx) > 0 && idx[len(idx)-1] == i {
				continue
			}
			owners[key] = append(idx, i)
		}
	}

	placed := make(map[string]bool)
	var groups []domain.DuplicateGroup

	for _, key := range order {
		var members []string
		inGroup := make(map[string]bool)
		for _, i := range owners[key] {
			id := items[i].ID
			if placed[id] || inGroup[id] {
				continue
			}
			inGroup[id] = true
			members = append(members, id)
		}
		if len(members) < 2 {
			continue
		}
		for _, id := range members {
			placed[id] = true
		}
		groups = append(groups, domain.DuplicateGroup{
			Rule:       rule,
			MemberIDs:  members,
			Similarity: 1.0,
			MatchedKey: displayKey(key),
		})
	}

	return groups
}

// displayKey renders a composite key with a readable separator.
func displayKey(key string) string {
	return strings.ReplaceAll(key, keySeparator, " | ")
}
