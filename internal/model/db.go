package model

import "gorm.io/gorm"

// Migrate creates or updates the tables of every partition and the
// cross-reference tables the tree cleans up on delete.
func Migrate(db *gorm.DB) error {
	models := []any{
		&Site{},
		&SiteCulture{},
		&DocumentType{},
		&TreeNode{},
		&Document{},
		&Extension{},
		&Category{},
		&DocumentCategory{},
		&TagGroup{},
		&Tag{},
		&DocumentTag{},
		&VersionHistory{},
		&EventLog{},
	}

	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return err
		}
	}

	return nil
}
