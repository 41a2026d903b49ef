package store

import (
	"time"

	"github.com/emrgen/doctree/internal/model"
)

// Clause is a raw condition over the joined node (alias n) and document
// (alias d) tables.
type Clause struct {
	SQL  string
	Args []any
}

// NodeFilter selects structural rows and their candidate culture rows.
// Zero values mean "no restriction".
type NodeFilter struct {
	SiteIDs     []uint
	NodeIDs     []uint64
	NodeGUIDs   []string
	DocumentIDs []uint64
	ClassIDs    []uint
	Cultures    []string
	ParentID    *uint64
	LinkedTo    *uint64
	// AliasPath is matched exactly unless it contains %, then with LIKE where
	// only % is a wildcard.
	AliasPath string
	// AliasPathOrSelf additionally matches AliasPath itself when it is a pattern
	// ending in /%.
	AliasPathOrSelf bool
	MinLevel        *int
	MaxLevel        *int
	ExcludeLinks    bool
	PublishedAt     *time.Time
	CategoryID      *uint64
	TagID           *uint64
	Where           []Clause
	OrderBy         []string
	AfterNodeID     uint64
	Limit           int

	// NodeColumns and DocumentColumns project the loaded rows. Key columns are
	// always added.
	NodeColumns     []string
	DocumentColumns []string
}

// NodeRow is one structural row paired with one candidate culture row. The
// document is nil for nodes without any culture row in an all-cultures read.
type NodeRow struct {
	Node     *model.TreeNode
	Document *model.Document
}

var (
	requiredNodeColumns     = []string{"id", "linked_node_id", "site_id", "parent_id", "class_id", "alias_path"}
	requiredDocumentColumns = []string{"id", "node_id", "culture", "foreign_key_value"}
)

func projection(columns []string, required []string) []string {
	if len(columns) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(columns)+len(required))
	out := make([]string, 0, len(columns)+len(required))
	for _, c := range append(append([]string{}, required...), columns...) {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}

	return out
}
