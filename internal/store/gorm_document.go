package store

import (
	"context"

	"github.com/emrgen/doctree/internal/model"
)

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Create(doc).Error
}

func (g *GormStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Save(doc).Error
}

func (g *GormStore) DeleteDocument(ctx context.Context, id uint64) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error
}

func (g *GormStore) GetDocument(ctx context.Context, id uint64) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (g *GormStore) GetDocumentByCulture(ctx context.Context, nodeID uint64, culture string) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Where("node_id = ? AND culture = ?", nodeID, culture).First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (g *GormStore) ListDocuments(ctx context.Context, nodeID uint64) ([]*model.Document, error) {
	var docs []*model.Document
	err := g.db.WithContext(ctx).Where("node_id = ?", nodeID).Order("culture").Find(&docs).Error
	return docs, err
}

func (g *GormStore) CountDocuments(ctx context.Context, nodeID uint64) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Document{}).Where("node_id = ?", nodeID).Count(&count).Error
	return count, err
}

func (g *GormStore) SiblingDocumentNames(ctx context.Context, parentID uint64, culture string, excludeID uint64) ([]string, error) {
	var names []string
	err := g.db.WithContext(ctx).
		Table("documents AS d").
		Joins("JOIN tree_nodes AS n ON d.node_id = n.id").
		Where("n.parent_id = ? AND n.id <> ? AND d.culture = ?", parentID, excludeID, culture).
		Pluck("d.name", &names).Error
	return names, err
}

func (g *GormStore) SetNamePath(ctx context.Context, id uint64, namePath string, urlPath string) error {
	return g.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"name_path": namePath, "url_path": urlPath}).Error
}

func (g *GormStore) CreateExtension(ctx context.Context, ext *model.Extension) error {
	return g.db.WithContext(ctx).Create(ext).Error
}

func (g *GormStore) UpdateExtension(ctx context.Context, ext *model.Extension) error {
	return g.db.WithContext(ctx).Save(ext).Error
}

func (g *GormStore) DeleteExtension(ctx context.Context, id uint64) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Extension{}).Error
}

func (g *GormStore) GetExtension(ctx context.Context, id uint64) (*model.Extension, error) {
	var ext model.Extension
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&ext).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ext, nil
}

func (g *GormStore) ListExtensions(ctx context.Context, ids []uint64) ([]*model.Extension, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var exts []*model.Extension
	err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&exts).Error
	return exts, err
}
