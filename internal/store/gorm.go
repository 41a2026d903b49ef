package store

import (
	"context"

	"github.com/emrgen/doctree/internal/model"
	"gorm.io/gorm"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

// DB exposes the underlying connection for maintenance commands.
func (g *GormStore) DB() *gorm.DB {
	return g.db
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}

func (g *GormStore) CreateSite(ctx context.Context, site *model.Site) error {
	return g.db.WithContext(ctx).Create(site).Error
}

func (g *GormStore) GetSite(ctx context.Context, id uint) (*model.Site, error) {
	var site model.Site
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&site).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &site, nil
}

func (g *GormStore) GetSiteByName(ctx context.Context, name string) (*model.Site, error) {
	var site model.Site
	err := g.db.WithContext(ctx).Where("name = ?", name).First(&site).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &site, nil
}

func (g *GormStore) ListSites(ctx context.Context) ([]*model.Site, error) {
	var sites []*model.Site
	err := g.db.WithContext(ctx).Order("name").Find(&sites).Error
	return sites, err
}

func (g *GormStore) AddSiteCulture(ctx context.Context, siteID uint, culture string) error {
	return g.db.WithContext(ctx).Save(&model.SiteCulture{SiteID: siteID, Culture: culture}).Error
}

func (g *GormStore) ListSiteCultures(ctx context.Context, siteID uint) ([]string, error) {
	var cultures []string
	err := g.db.WithContext(ctx).Model(&model.SiteCulture{}).
		Where("site_id = ?", siteID).
		Order("culture").
		Pluck("culture", &cultures).Error
	return cultures, err
}

func (g *GormStore) IsCultureAllowed(ctx context.Context, siteID uint, culture string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.SiteCulture{}).
		Where("site_id = ? AND culture = ?", siteID, culture).
		Count(&count).Error
	return count > 0, err
}

func (g *GormStore) CreateDocumentType(ctx context.Context, t *model.DocumentType) error {
	return g.db.WithContext(ctx).Create(t).Error
}

func (g *GormStore) UpdateDocumentType(ctx context.Context, t *model.DocumentType) error {
	return g.db.WithContext(ctx).Save(t).Error
}

func (g *GormStore) GetDocumentType(ctx context.Context, id uint) (*model.DocumentType, error) {
	var t model.DocumentType
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (g *GormStore) GetDocumentTypeByName(ctx context.Context, name string) (*model.DocumentType, error) {
	var t model.DocumentType
	err := g.db.WithContext(ctx).Where("name = ?", name).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (g *GormStore) ListDocumentTypes(ctx context.Context) ([]*model.DocumentType, error) {
	var types []*model.DocumentType
	err := g.db.WithContext(ctx).Order("name").Find(&types).Error
	return types, err
}
