package model

// TagGroup is a site specific set of tags a document draws from.
type TagGroup struct {
	ID     uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	SiteID uint   `gorm:"column:site_id;not null;index"`
	Name   string `gorm:"column:name;not null"`
}

func (TagGroup) TableName() string {
	return "tag_groups"
}

type Tag struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID uint64 `gorm:"column:group_id;not null;index"`
	Name    string `gorm:"column:name;not null"`
}

func (Tag) TableName() string {
	return "tags"
}

type DocumentTag struct {
	DocumentID uint64 `gorm:"column:document_id;primaryKey"`
	TagID      uint64 `gorm:"column:tag_id;primaryKey"`
}

func (DocumentTag) TableName() string {
	return "document_tags"
}
