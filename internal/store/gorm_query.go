package store

import (
	"context"
	"strings"

	"github.com/emrgen/doctree/internal/model"
	"gorm.io/gorm"
)

func (g *GormStore) FindNodeIDs(ctx context.Context, filter *NodeFilter) ([]uint64, error) {
	var ids []uint64
	q := g.joined(ctx, filter).Distinct("n.id")
	if filter.AfterNodeID > 0 {
		q = q.Where("n.id > ?", filter.AfterNodeID)
	}
	q = q.Order("n.id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	err := q.Pluck("n.id", &ids).Error
	return ids, err
}

type idPair struct {
	NodeID     uint64
	DocumentID *uint64
}

func (g *GormStore) FindNodeRows(ctx context.Context, filter *NodeFilter) ([]*NodeRow, error) {
	var pairs []idPair
	q := g.joined(ctx, filter).Select("n.id AS node_id, d.id AS document_id")
	if filter.AfterNodeID > 0 {
		q = q.Where("n.id > ?", filter.AfterNodeID)
	}
	if len(filter.OrderBy) > 0 {
		for _, o := range filter.OrderBy {
			q = q.Order(o)
		}
	} else {
		q = q.Order("n.alias_path").Order("n.id")
	}
	q = q.Order("d.culture")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(&pairs).Error; err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	nodeIDs := make([]uint64, 0, len(pairs))
	docIDs := make([]uint64, 0, len(pairs))
	for _, p := range pairs {
		nodeIDs = append(nodeIDs, p.NodeID)
		if p.DocumentID != nil {
			docIDs = append(docIDs, *p.DocumentID)
		}
	}

	var nodes []*model.TreeNode
	nq := g.db.WithContext(ctx).Where("id IN ?", nodeIDs)
	if cols := projection(filter.NodeColumns, requiredNodeColumns); cols != nil {
		nq = nq.Select(cols)
	}
	if err := nq.Find(&nodes).Error; err != nil {
		return nil, err
	}
	nodesByID := make(map[uint64]*model.TreeNode, len(nodes))
	for _, n := range nodes {
		nodesByID[n.ID] = n
	}

	docsByID := make(map[uint64]*model.Document, len(docIDs))
	if len(docIDs) > 0 {
		var docs []*model.Document
		dq := g.db.WithContext(ctx).Where("id IN ?", docIDs)
		if cols := projection(filter.DocumentColumns, requiredDocumentColumns); cols != nil {
			dq = dq.Select(cols)
		}
		if err := dq.Find(&docs).Error; err != nil {
			return nil, err
		}
		for _, d := range docs {
			docsByID[d.ID] = d
		}
	}

	rows := make([]*NodeRow, 0, len(pairs))
	for _, p := range pairs {
		node, ok := nodesByID[p.NodeID]
		if !ok {
			continue
		}
		row := &NodeRow{Node: node}
		if p.DocumentID != nil {
			row.Document = docsByID[*p.DocumentID]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// joined builds the node/document join with every filter condition applied.
// Culture rows are joined through the original so links read the original's
// content.
func (g *GormStore) joined(ctx context.Context, f *NodeFilter) *gorm.DB {
	q := g.db.WithContext(ctx).Table("tree_nodes AS n")
	if len(f.Cultures) > 0 {
		q = q.Joins("JOIN documents AS d ON d.node_id = COALESCE(n.linked_node_id, n.id) AND d.culture IN ?", f.Cultures)
	} else {
		q = q.Joins("LEFT JOIN documents AS d ON d.node_id = COALESCE(n.linked_node_id, n.id)")
	}

	if len(f.SiteIDs) > 0 {
		q = q.Where("n.site_id IN ?", f.SiteIDs)
	}
	if len(f.NodeIDs) > 0 {
		q = q.Where("n.id IN ?", f.NodeIDs)
	}
	if len(f.NodeGUIDs) > 0 {
		q = q.Where("n.guid IN ?", f.NodeGUIDs)
	}
	if len(f.DocumentIDs) > 0 {
		q = q.Where("d.id IN ?", f.DocumentIDs)
	}
	if len(f.ClassIDs) > 0 {
		q = q.Where("n.class_id IN ?", f.ClassIDs)
	}
	if f.ParentID != nil {
		q = q.Where("n.parent_id = ?", *f.ParentID)
	}
	if f.LinkedTo != nil {
		q = q.Where("n.linked_node_id = ?", *f.LinkedTo)
	}
	if f.AliasPath != "" {
		q = aliasPathCondition(q, f.AliasPath, f.AliasPathOrSelf)
	}
	if f.MinLevel != nil {
		q = q.Where("n.level >= ?", *f.MinLevel)
	}
	if f.MaxLevel != nil {
		q = q.Where("n.level <= ?", *f.MaxLevel)
	}
	if f.ExcludeLinks {
		q = q.Where("n.linked_node_id IS NULL")
	}
	if f.PublishedAt != nil {
		q = q.Where("d.is_archived = ?", false).
			Where("(d.publish_from IS NULL OR d.publish_from <= ?)", *f.PublishedAt).
			Where("(d.publish_to IS NULL OR d.publish_to > ?)", *f.PublishedAt)
	}
	if f.CategoryID != nil {
		q = q.Where("d.id IN (SELECT document_id FROM document_categories WHERE category_id = ?)", *f.CategoryID)
	}
	if f.TagID != nil {
		q = q.Where("d.id IN (SELECT document_id FROM document_tags WHERE tag_id = ?)", *f.TagID)
	}
	for _, c := range f.Where {
		q = q.Where(c.SQL, c.Args...)
	}

	return q
}

func aliasPathCondition(q *gorm.DB, path string, orSelf bool) *gorm.DB {
	if !strings.Contains(path, "%") {
		return q.Where("LOWER(n.alias_path) = LOWER(?)", path)
	}

	if orSelf && strings.HasSuffix(path, "/%") {
		self := strings.TrimSuffix(path, "/%")
		if self == "" {
			self = model.RootAliasPath
		}
		return q.Where(`(LOWER(n.alias_path) LIKE LOWER(?) ESCAPE '\' OR LOWER(n.alias_path) = LOWER(?))`, likePattern(path), self)
	}

	return q.Where(`LOWER(n.alias_path) LIKE LOWER(?) ESCAPE '\'`, likePattern(path))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "_", `\_`)

// likePattern keeps % as the only wildcard. Aliases may contain _, which
// LIKE would otherwise match against any character.
func likePattern(path string) string {
	return likeEscaper.Replace(path)
}
