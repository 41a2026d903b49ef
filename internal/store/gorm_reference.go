package store

import (
	"context"
	"time"

	"github.com/emrgen/doctree/internal/model"
)

func (g *GormStore) CreateCategory(ctx context.Context, category *model.Category) error {
	return g.db.WithContext(ctx).Create(category).Error
}

func (g *GormStore) AddDocumentCategory(ctx context.Context, documentID, categoryID uint64) error {
	return g.db.WithContext(ctx).Save(&model.DocumentCategory{DocumentID: documentID, CategoryID: categoryID}).Error
}

func (g *GormStore) ListDocumentCategories(ctx context.Context, documentID uint64) ([]*model.Category, error) {
	var categories []*model.Category
	err := g.db.WithContext(ctx).
		Table("categories AS c").
		Select("c.*").
		Joins("JOIN document_categories AS dc ON dc.category_id = c.id").
		Where("dc.document_id = ?", documentID).
		Order("c.name").
		Find(&categories).Error
	return categories, err
}

func (g *GormStore) RemoveDocumentCategories(ctx context.Context, documentIDs []uint64, categoryIDs []uint64) error {
	if len(documentIDs) == 0 || len(categoryIDs) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).
		Where("document_id IN ? AND category_id IN ?", documentIDs, categoryIDs).
		Delete(&model.DocumentCategory{}).Error
}

func (g *GormStore) DeleteDocumentCategories(ctx context.Context, documentIDs []uint64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Where("document_id IN ?", documentIDs).Delete(&model.DocumentCategory{}).Error
}

func (g *GormStore) CreateTagGroup(ctx context.Context, group *model.TagGroup) error {
	return g.db.WithContext(ctx).Create(group).Error
}

func (g *GormStore) GetTagGroup(ctx context.Context, id uint64) (*model.TagGroup, error) {
	var group model.TagGroup
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (g *GormStore) FindTagGroup(ctx context.Context, siteID uint, name string) (*model.TagGroup, error) {
	var group model.TagGroup
	err := g.db.WithContext(ctx).Where("site_id = ? AND name = ?", siteID, name).First(&group).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (g *GormStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	return g.db.WithContext(ctx).Create(tag).Error
}

func (g *GormStore) AddDocumentTag(ctx context.Context, documentID, tagID uint64) error {
	return g.db.WithContext(ctx).Save(&model.DocumentTag{DocumentID: documentID, TagID: tagID}).Error
}

func (g *GormStore) ListDocumentTags(ctx context.Context, documentID uint64) ([]*model.Tag, error) {
	var tags []*model.Tag
	err := g.db.WithContext(ctx).
		Table("tags AS t").
		Select("t.*").
		Joins("JOIN document_tags AS dt ON dt.tag_id = t.id").
		Where("dt.document_id = ?", documentID).
		Order("t.name").
		Find(&tags).Error
	return tags, err
}

func (g *GormStore) DeleteDocumentTags(ctx context.Context, documentIDs []uint64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Where("document_id IN ?", documentIDs).Delete(&model.DocumentTag{}).Error
}

func (g *GormStore) ListVersionHistory(ctx context.Context, documentID uint64) ([]*model.VersionHistory, error) {
	var history []*model.VersionHistory
	err := g.db.WithContext(ctx).Where("document_id = ?", documentID).Order("modified_when desc, id desc").Find(&history).Error
	return history, err
}

func (g *GormStore) DeleteVersionHistory(ctx context.Context, documentIDs []uint64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Where("document_id IN ?", documentIDs).Delete(&model.VersionHistory{}).Error
}

func (g *GormStore) CreateEventLog(ctx context.Context, event *model.EventLog) error {
	return g.db.WithContext(ctx).Create(event).Error
}

func (g *GormStore) ListEventLogs(ctx context.Context, nodeID uint64, limit int) ([]*model.EventLog, error) {
	var events []*model.EventLog
	q := g.db.WithContext(ctx).Order("created_at desc, id desc")
	if nodeID > 0 {
		q = q.Where("node_id = ?", nodeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}

func (g *GormStore) DeleteEventLogsBefore(ctx context.Context, t time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("created_at < ?", t).Delete(&model.EventLog{})
	return res.RowsAffected, res.Error
}
