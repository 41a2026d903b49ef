package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/query"
	"github.com/emrgen/doctree/internal/store"
)

// NodeQuery is a lazy node selection. Builders record the selection and
// return the query; nothing is read until Find, First, Count or ForEachBatch.
type NodeQuery struct {
	svc      *Service
	d        *query.Descriptor
	priority query.Priority
}

// Query starts a selection of every node of every site in every culture,
// combined with the site default culture when the settings say so.
func (s *Service) Query() *NodeQuery {
	d := query.NewDescriptor()
	d.Culture = query.AllCultures
	d.SiteName = query.AllSites
	d.CombineWithDefaultCulture = s.settings.CombineWithDefaultCulture

	return &NodeQuery{svc: s, d: d, priority: query.Priority{Preferred: s.settings.PreferredCulture}}
}

// Descriptor exposes the recorded selection.
func (q *NodeQuery) Descriptor() *query.Descriptor { return q.d }

func (q *NodeQuery) OnSite(name string) *NodeQuery {
	q.d.SiteName = name
	return q
}

// Path selects an alias path. A pattern ending in /% selects the prefix node
// and everything below it.
func (q *NodeQuery) Path(aliasPath string) *NodeQuery {
	q.d.AliasPath = aliasPath
	return q
}

func (q *NodeQuery) Culture(culture string) *NodeQuery {
	q.d.Culture = culture
	return q
}

func (q *NodeQuery) CombineWithDefaultCulture(combine bool) *NodeQuery {
	q.d.CombineWithDefaultCulture = combine
	return q
}

// CultureOrder breaks ties between cultures that are neither preferred nor a
// site default when rows are combined.
func (q *NodeQuery) CultureOrder(less func(a, b string) bool) *NodeQuery {
	q.priority.Others = less
	return q
}

func (q *NodeQuery) Types(names ...string) *NodeQuery {
	q.d.ClassNames = append(q.d.ClassNames, names...)
	return q
}

// Where adds a raw condition over the node (n) and document (d) tables.
func (q *NodeQuery) Where(sql string, args ...any) *NodeQuery {
	q.d.Where = append(q.d.Where, store.Clause{SQL: sql, Args: args})
	return q
}

func (q *NodeQuery) OrderBy(columns ...string) *NodeQuery {
	q.d.OrderBy = append(q.d.OrderBy, columns...)
	return q
}

// MaxRelativeLevel limits path patterns to levels below the fixed prefix;
// negative means unlimited.
func (q *NodeQuery) MaxRelativeLevel(levels int) *NodeQuery {
	q.d.MaxRelativeLevel = levels
	return q
}

func (q *NodeQuery) Published(only bool) *NodeQuery {
	q.d.PublishedOnly = only
	return q
}

// Columns projects the loaded rows, e.g. "n.alias_path" or "d.name". Key
// columns are always loaded.
func (q *NodeQuery) Columns(columns ...string) *NodeQuery {
	q.d.Columns = append(q.d.Columns, columns...)
	return q
}

func (q *NodeQuery) TopN(n int) *NodeQuery {
	q.d.TopN = n
	return q
}

// FilterDuplicates drops links whose original is selected in the same
// culture.
func (q *NodeQuery) FilterDuplicates(filter bool) *NodeQuery {
	q.d.FilterDuplicates = filter
	return q
}

func (q *NodeQuery) InCategory(categoryID uint64) *NodeQuery {
	q.d.CategoryID = &categoryID
	return q
}

func (q *NodeQuery) WithTag(tagID uint64) *NodeQuery {
	q.d.TagID = &tagID
	return q
}

func (q *NodeQuery) ExcludeLinks() *NodeQuery {
	q.d.ExcludeLinks = true
	return q
}

// Children selects the direct children of parentID.
func (q *NodeQuery) Children(parentID uint64) *NodeQuery {
	q.d.ParentID = &parentID
	return q
}

// LinksTo selects the links pointing at originalID.
func (q *NodeQuery) LinksTo(originalID uint64) *NodeQuery {
	q.d.LinkedTo = &originalID
	return q
}

func (q *NodeQuery) IDs(ids ...uint64) *NodeQuery {
	q.d.NodeIDs = append(q.d.NodeIDs, ids...)
	return q
}

func (q *NodeQuery) GUIDs(guids ...string) *NodeQuery {
	q.d.NodeGUIDs = append(q.d.NodeGUIDs, guids...)
	return q
}

func (q *NodeQuery) DocumentIDs(ids ...uint64) *NodeQuery {
	q.d.DocumentIDs = append(q.d.DocumentIDs, ids...)
	return q
}

// Find runs the selection.
func (q *NodeQuery) Find(ctx context.Context) ([]*Node, error) {
	filter, err := q.filter(ctx)
	if err != nil {
		return nil, err
	}
	if q.postProcessed() {
		filter.Limit = 0
	}

	rows, err := q.svc.store.FindNodeRows(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("select nodes: %w", err)
	}

	return q.svc.nodes(ctx, q.process(rows, q.d.TopN))
}

// First returns the first selected node or a NotFoundError.
func (q *NodeQuery) First(ctx context.Context) (*Node, error) {
	q.d.TopN = 1
	nodes, err := q.Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &NotFoundError{Resource: "node", Key: q.key()}
	}
	return nodes[0], nil
}

// Count counts the rows Find would return.
func (q *NodeQuery) Count(ctx context.Context) (int, error) {
	filter, err := q.filter(ctx)
	if err != nil {
		return 0, err
	}
	if q.postProcessed() {
		filter.Limit = 0
	}

	rows, err := q.svc.store.FindNodeRows(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}

	return len(q.process(rows, q.d.TopN)), nil
}

// ForEachBatch runs the selection in pages of Settings.BatchSize nodes,
// ordered by node id, and calls fn with each page. An error from fn stops
// the iteration and is returned.
func (q *NodeQuery) ForEachBatch(ctx context.Context, fn func(nodes []*Node) error) error {
	filter, err := q.filter(ctx)
	if err != nil {
		return err
	}
	filter.Limit = 0

	remaining := q.d.TopN
	var after uint64
	for {
		page := *filter
		page.AfterNodeID = after
		page.Limit = q.svc.settings.BatchSize
		ids, err := q.svc.store.FindNodeIDs(ctx, &page)
		if err != nil {
			return fmt.Errorf("select node page: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		after = ids[len(ids)-1]

		rowsFilter := *filter
		rowsFilter.NodeIDs = ids
		rows, err := q.svc.store.FindNodeRows(ctx, &rowsFilter)
		if err != nil {
			return fmt.Errorf("select nodes: %w", err)
		}
		nodes, err := q.svc.nodes(ctx, q.process(rows, remaining))
		if err != nil {
			return err
		}
		if len(nodes) > 0 {
			if err = fn(nodes); err != nil {
				return err
			}
		}

		if remaining > 0 {
			remaining -= len(nodes)
			if remaining <= 0 {
				return nil
			}
		}
		if len(ids) < q.svc.settings.BatchSize {
			return nil
		}
	}
}

// postProcessed reports whether rows are reduced after loading, in which case
// TopN cannot be pushed into the read.
func (q *NodeQuery) postProcessed() bool {
	return q.d.CombineWithDefaultCulture || q.d.FilterDuplicates
}

func (q *NodeQuery) process(rows []*store.NodeRow, top int) []*store.NodeRow {
	rows = query.Combine(rows, q.d.Culture, q.d.CombineWithDefaultCulture, q.svc.defaultCulture, q.priority)
	if q.d.FilterDuplicates {
		rows = query.FilterDuplicates(rows)
	}
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	return rows
}

// filter resolves names in the descriptor to a store filter.
func (q *NodeQuery) filter(ctx context.Context) (*store.NodeFilter, error) {
	s := q.svc
	d := q.d
	if err := validationFailed("invalid query", d.Validate()); err != nil {
		return nil, err
	}

	// site defaults are needed for combining, so the site cache is filled
	sites, err := s.allSites(ctx)
	if err != nil {
		return nil, err
	}

	f := &store.NodeFilter{
		NodeIDs:      d.NodeIDs,
		NodeGUIDs:    d.NodeGUIDs,
		DocumentIDs:  d.DocumentIDs,
		ParentID:     d.ParentID,
		LinkedTo:     d.LinkedTo,
		ExcludeLinks: d.ExcludeLinks,
		CategoryID:   d.CategoryID,
		TagID:        d.TagID,
		Where:        d.Where,
		OrderBy:      d.OrderBy,
		Limit:        d.TopN,
	}
	f.NodeColumns, f.DocumentColumns = d.SplitColumns()
	if len(f.NodeColumns) > 0 && len(f.DocumentColumns) == 0 {
		f.DocumentColumns = []string{"culture"}
	}

	if !d.AllSiteRows() {
		site, err := s.siteByName(ctx, d.SiteName)
		if err != nil {
			return nil, err
		}
		f.SiteIDs = []uint{site.ID}
		sites = []*model.Site{site}
	}

	for _, name := range d.ClassNames {
		t, err := s.Type(ctx, name)
		if err != nil {
			return nil, err
		}
		f.ClassIDs = append(f.ClassIDs, t.ID())
	}

	if !d.AllCultureRows() {
		f.Cultures = []string{d.Culture}
		if d.CombineWithDefaultCulture {
			for _, site := range sites {
				if !containsFold(f.Cultures, site.DefaultCulture) {
					f.Cultures = append(f.Cultures, site.DefaultCulture)
				}
			}
		}
	}

	if d.AliasPath != "" {
		f.AliasPath = d.AliasPath
		if query.IsPattern(d.AliasPath) {
			f.AliasPathOrSelf = true
			if d.MaxRelativeLevel >= 0 {
				maxLevel := query.BaseLevel(d.AliasPath) + d.MaxRelativeLevel
				f.MaxLevel = &maxLevel
			}
		}
	}

	if d.PublishedOnly {
		now := s.now()
		f.PublishedAt = &now
	}

	return f, nil
}

func (q *NodeQuery) key() string {
	parts := []string{q.d.SiteName}
	if q.d.AliasPath != "" {
		parts = append(parts, q.d.AliasPath)
	}
	if len(q.d.NodeIDs) > 0 {
		parts = append(parts, fmt.Sprint(q.d.NodeIDs))
	}
	if len(q.d.NodeGUIDs) > 0 {
		parts = append(parts, strings.Join(q.d.NodeGUIDs, ","))
	}
	if len(q.d.DocumentIDs) > 0 {
		parts = append(parts, fmt.Sprint(q.d.DocumentIDs))
	}
	if !q.d.AllCultureRows() {
		parts = append(parts, q.d.Culture)
	}
	return strings.Join(parts, " ")
}

// nodes builds nodes from loaded rows, batch loading their extensions.
func (s *Service) nodes(ctx context.Context, rows []*store.NodeRow) ([]*Node, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var keys []uint64
	for _, r := range rows {
		if r.Document != nil && r.Document.ForeignKey != nil {
			keys = append(keys, *r.Document.ForeignKey)
		}
	}
	extensions := make(map[uint64]*model.Extension, len(keys))
	if len(keys) > 0 {
		list, err := s.store.ListExtensions(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("load extensions: %w", err)
		}
		for _, ext := range list {
			extensions[ext.ID] = ext
		}
	}

	nodes := make([]*Node, 0, len(rows))
	for _, r := range rows {
		t, err := s.TypeByID(ctx, r.Node.ClassID)
		if err != nil {
			return nil, err
		}
		site, err := s.site(ctx, r.Node.SiteID)
		if err != nil {
			return nil, err
		}

		n := &Node{svc: s, typ: t, site: site, Structural: cloneTreeNode(*r.Node)}
		if r.Document != nil {
			n.Culture = cloneDocument(*r.Document)
			if r.Document.ForeignKey != nil {
				n.Extension = extensions[*r.Document.ForeignKey].Clone()
			}
		}
		n.markPersisted()
		nodes = append(nodes, n)
	}

	return nodes, nil
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
