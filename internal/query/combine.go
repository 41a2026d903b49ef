package query

import (
	"sort"

	"github.com/emrgen/doctree/internal/store"
)

// Priority orders candidate cultures when rows must be collapsed to one per
// node: Preferred first, then the site default, then the rest ordered by
// Others.
type Priority struct {
	Preferred string
	// Others breaks ties between non-preferred, non-default cultures.
	// Alphabetical by culture code when nil.
	Others func(a, b string) bool
}

func (p Priority) less(a, b, siteDefault string) bool {
	rank := func(c string) int {
		switch {
		case p.Preferred != "" && c == p.Preferred:
			return 0
		case c == siteDefault:
			return 1
		default:
			return 2
		}
	}

	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	if p.Others != nil {
		return p.Others(a, b)
	}
	return a < b
}

// SiteDefaults resolves the default culture of a site.
type SiteDefaults func(siteID uint) string

// Combine applies the culture combination policy to candidate rows.
//
// For a single culture, rows of that culture are kept; with combine set, a
// node without such a row keeps its site default culture row instead.
// For all cultures every row is kept unless combine is set, in which case
// each node keeps its highest priority row.
//
// The relative order of kept rows is preserved.
func Combine(rows []*store.NodeRow, culture string, combine bool, defaults SiteDefaults, priority Priority) []*store.NodeRow {
	if culture == "" || culture == AllCultures {
		if !combine {
			return rows
		}
		return collapse(rows, defaults, priority)
	}

	exact := make(map[uint64]bool, len(rows))
	for _, r := range rows {
		if r.Document != nil && r.Document.Culture == culture {
			exact[r.Node.ID] = true
		}
	}

	out := make([]*store.NodeRow, 0, len(rows))
	seen := make(map[uint64]bool, len(rows))
	for _, r := range rows {
		if r.Document == nil || seen[r.Node.ID] {
			continue
		}

		switch {
		case r.Document.Culture == culture:
		case combine && !exact[r.Node.ID] && r.Document.Culture == defaults(r.Node.SiteID):
		default:
			continue
		}

		seen[r.Node.ID] = true
		out = append(out, r)
	}

	return out
}

func collapse(rows []*store.NodeRow, defaults SiteDefaults, priority Priority) []*store.NodeRow {
	best := make(map[uint64]*store.NodeRow, len(rows))
	order := make([]uint64, 0, len(rows))
	for _, r := range rows {
		current, ok := best[r.Node.ID]
		if !ok {
			best[r.Node.ID] = r
			order = append(order, r.Node.ID)
			continue
		}
		if current.Document == nil {
			best[r.Node.ID] = r
			continue
		}
		if r.Document != nil && priority.less(r.Document.Culture, current.Document.Culture, defaults(r.Node.SiteID)) {
			best[r.Node.ID] = r
		}
	}

	out := make([]*store.NodeRow, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}

	return out
}

// BestCulture picks the culture a node should be read in out of the cultures
// it has, with the same priority used when collapsing rows. It returns false
// when cultures is empty.
func BestCulture(cultures []string, requested string, siteDefault string, priority Priority) (string, bool) {
	if len(cultures) == 0 {
		return "", false
	}

	if requested != "" && requested != AllCultures {
		priority.Preferred = requested
	}

	sorted := append([]string(nil), cultures...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priority.less(sorted[i], sorted[j], siteDefault)
	})

	return sorted[0], true
}

// FilterDuplicates keeps one row per original node and culture when a result
// holds both links and originals: the first non-link row if any, else the
// first link row. Relative order is preserved.
func FilterDuplicates(rows []*store.NodeRow) []*store.NodeRow {
	type groupKey struct {
		original uint64
		culture  string
	}

	keyOf := func(r *store.NodeRow) groupKey {
		k := groupKey{original: r.Node.OriginalID()}
		if r.Document != nil {
			k.culture = r.Document.Culture
		}
		return k
	}

	chosen := make(map[groupKey]*store.NodeRow, len(rows))
	for _, r := range rows {
		k := keyOf(r)
		current, ok := chosen[k]
		if !ok || (current.Node.IsLink() && !r.Node.IsLink()) {
			chosen[k] = r
		}
	}

	out := make([]*store.NodeRow, 0, len(chosen))
	for _, r := range rows {
		if chosen[keyOf(r)] == r {
			out = append(out, r)
		}
	}

	return out
}
