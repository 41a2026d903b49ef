package store

import (
	"context"

	"github.com/emrgen/doctree/internal/model"
)

func (g *GormStore) CreateTreeNode(ctx context.Context, node *model.TreeNode) error {
	return g.db.WithContext(ctx).Create(node).Error
}

func (g *GormStore) UpdateTreeNode(ctx context.Context, node *model.TreeNode) error {
	return g.db.WithContext(ctx).Save(node).Error
}

func (g *GormStore) DeleteTreeNode(ctx context.Context, id uint64) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.TreeNode{}).Error
}

func (g *GormStore) GetTreeNode(ctx context.Context, id uint64) (*model.TreeNode, error) {
	var node model.TreeNode
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&node).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &node, nil
}

func (g *GormStore) GetTreeNodeByPath(ctx context.Context, siteID uint, aliasPath string) (*model.TreeNode, error) {
	var node model.TreeNode
	err := g.db.WithContext(ctx).
		Where("site_id = ? AND LOWER(alias_path) = LOWER(?)", siteID, aliasPath).
		Order("id").
		First(&node).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &node, nil
}

func (g *GormStore) GetRootNode(ctx context.Context, siteID uint) (*model.TreeNode, error) {
	var node model.TreeNode
	err := g.db.WithContext(ctx).Where("site_id = ? AND parent_id IS NULL", siteID).First(&node).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &node, nil
}

func (g *GormStore) ListChildNodes(ctx context.Context, parentID uint64) ([]*model.TreeNode, error) {
	var nodes []*model.TreeNode
	err := g.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("node_order, id").
		Find(&nodes).Error
	return nodes, err
}

func (g *GormStore) ListChildNodesAfter(ctx context.Context, parentID uint64, after uint64, limit int) ([]*model.TreeNode, error) {
	var nodes []*model.TreeNode
	err := g.db.WithContext(ctx).
		Where("parent_id = ? AND id > ?", parentID, after).
		Order("id").
		Limit(limit).
		Find(&nodes).Error
	return nodes, err
}

func (g *GormStore) ListLinks(ctx context.Context, originalID uint64, after uint64, limit int) ([]*model.TreeNode, error) {
	var nodes []*model.TreeNode
	err := g.db.WithContext(ctx).
		Where("linked_node_id = ? AND id > ?", originalID, after).
		Order("id").
		Limit(limit).
		Find(&nodes).Error
	return nodes, err
}

func (g *GormStore) CountChildNodes(ctx context.Context, parentID uint64) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.TreeNode{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}

func (g *GormStore) MaxChildOrder(ctx context.Context, parentID uint64) (int, error) {
	var max *int
	err := g.db.WithContext(ctx).Model(&model.TreeNode{}).
		Where("parent_id = ?", parentID).
		Select("MAX(node_order)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

func (g *GormStore) SiblingAliases(ctx context.Context, parentID uint64, excludeID uint64) ([]string, error) {
	var aliases []string
	err := g.db.WithContext(ctx).Model(&model.TreeNode{}).
		Where("parent_id = ? AND id <> ?", parentID, excludeID).
		Pluck("alias", &aliases).Error
	return aliases, err
}

func (g *GormStore) SetNodeOrder(ctx context.Context, id uint64, order int) error {
	return g.db.WithContext(ctx).Model(&model.TreeNode{}).
		Where("id = ?", id).
		Update("node_order", order).Error
}

func (g *GormStore) SetNodePath(ctx context.Context, id uint64, aliasPath string, level int) error {
	return g.db.WithContext(ctx).Model(&model.TreeNode{}).
		Where("id = ?", id).
		Updates(map[string]any{"alias_path": aliasPath, "level": level}).Error
}

func (g *GormStore) SetLinkedNodeSite(ctx context.Context, originalID uint64, siteID uint) error {
	return g.db.WithContext(ctx).Model(&model.TreeNode{}).
		Where("linked_node_id = ?", originalID).
		Update("linked_node_site_id", siteID).Error
}

func (g *GormStore) ListDanglingLinks(ctx context.Context, after uint64, limit int) ([]*model.TreeNode, error) {
	var nodes []*model.TreeNode
	err := g.db.WithContext(ctx).
		Where("linked_node_id IS NOT NULL AND id > ?", after).
		Where("NOT EXISTS (SELECT 1 FROM tree_nodes o WHERE o.id = tree_nodes.linked_node_id)").
		Order("id").
		Limit(limit).
		Find(&nodes).Error
	return nodes, err
}
