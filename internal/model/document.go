package model

import (
	"time"

	"gorm.io/datatypes"
)

// Document is the culture partition of a node: one row per culture version.
// Links never own Document rows, they read the original's.
type Document struct {
	ID                         uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	GUID                       string         `gorm:"column:guid;type:uuid;not null"`
	NodeID                     uint64         `gorm:"column:node_id;not null;uniqueIndex:idx_documents_node_culture"`
	Culture                    string         `gorm:"column:culture;not null;uniqueIndex:idx_documents_node_culture"`
	Name                       string         `gorm:"column:name;not null;default:''"`
	NamePath                   string         `gorm:"column:name_path;not null;default:''"`
	URLPath                    string         `gorm:"column:url_path;not null;default:''"`
	WorkflowStepID             *uint64        `gorm:"column:workflow_step_id"`
	CheckedOutVersionHistoryID *uint64        `gorm:"column:checked_out_version_history_id"`
	PublishedVersionHistoryID  *uint64        `gorm:"column:published_version_history_id"`
	IsArchived                 bool           `gorm:"column:is_archived;not null;default:false"`
	PublishFrom                *time.Time     `gorm:"column:publish_from"`
	PublishTo                  *time.Time     `gorm:"column:publish_to"`
	CreatedWhen                time.Time      `gorm:"column:created_when"`
	ModifiedWhen               time.Time      `gorm:"column:modified_when"`
	CreatedByUserID            *uint64        `gorm:"column:created_by_user_id"`
	ModifiedByUserID           *uint64        `gorm:"column:modified_by_user_id"`
	SearchExcluded             bool           `gorm:"column:search_excluded;not null;default:false"`
	ShowInSitemap              bool           `gorm:"column:show_in_sitemap;not null;default:true"`
	TagGroupID                 *uint64        `gorm:"column:tag_group_id"`
	CustomData                 datatypes.JSON `gorm:"column:custom_data"`
	ForeignKey                 *uint64        `gorm:"column:foreign_key_value"`
}

func (Document) TableName() string {
	return "documents"
}

// IsPublishedAt reports whether the document is visible at t: not archived and
// inside its publish window.
func (d *Document) IsPublishedAt(t time.Time) bool {
	if d.IsArchived {
		return false
	}
	if d.PublishFrom != nil && d.PublishFrom.After(t) {
		return false
	}
	if d.PublishTo != nil && !d.PublishTo.After(t) {
		return false
	}

	return true
}
