package model

import "time"

// VersionHistory is written by the workflow subsystem. The tree only reads it
// through the History collection and removes it when history is destroyed.
type VersionHistory struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentID       uint64    `gorm:"column:document_id;not null;index"`
	SiteID           uint      `gorm:"column:site_id"`
	Culture          string    `gorm:"column:culture"`
	VersionNumber    string    `gorm:"column:version_number"`
	ModifiedWhen     time.Time `gorm:"column:modified_when"`
	ModifiedByUserID *uint64   `gorm:"column:modified_by_user_id"`
}

func (VersionHistory) TableName() string {
	return "version_history"
}
