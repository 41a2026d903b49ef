package model

import "time"

// Site is an independent tree with its own root and set of cultures.
type Site struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string `gorm:"column:name;not null;uniqueIndex"`
	DisplayName    string `gorm:"column:display_name"`
	DefaultCulture string `gorm:"column:default_culture;not null"`
	CreatedAt      time.Time
}

func (Site) TableName() string {
	return "sites"
}

// SiteCulture allows one culture on one site.
type SiteCulture struct {
	SiteID  uint   `gorm:"column:site_id;primaryKey"`
	Culture string `gorm:"column:culture;primaryKey"`
}

func (SiteCulture) TableName() string {
	return "site_cultures"
}
