package model

// Category is either global (SiteID nil) or owned by one site.
type Category struct {
	ID     uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	SiteID *uint  `gorm:"column:site_id;index"`
	Name   string `gorm:"column:name;not null"`
}

func (Category) TableName() string {
	return "categories"
}

type DocumentCategory struct {
	DocumentID uint64 `gorm:"column:document_id;primaryKey"`
	CategoryID uint64 `gorm:"column:category_id;primaryKey"`
}

func (DocumentCategory) TableName() string {
	return "document_categories"
}
