package model

import "time"

// EventLog is one persisted audit record.
type EventLog struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Source       string    `gorm:"column:source;not null"`
	EventCode    string    `gorm:"column:event_code;not null;index"`
	EventType    string    `gorm:"column:event_type;not null"`
	Description  string    `gorm:"column:description"`
	DocumentName string    `gorm:"column:document_name"`
	AliasPath    string    `gorm:"column:alias_path"`
	NodeID       uint64    `gorm:"column:node_id;index"`
	DocumentID   uint64    `gorm:"column:document_id"`
	SiteID       uint      `gorm:"column:site_id;index"`
	UserID       uint64    `gorm:"column:user_id"`
	UserName     string    `gorm:"column:user_name"`
	IPAddress    string    `gorm:"column:ip_address"`
	URL          string    `gorm:"column:url"`
	UserAgent    string    `gorm:"column:user_agent"`
	Diff         []byte    `gorm:"column:diff"`
	Compression  string    `gorm:"column:compression"`
	CreatedAt    time.Time `gorm:"column:created_at;index"`
}

func (EventLog) TableName() string {
	return "event_log"
}
