package model

import "gorm.io/datatypes"

// Extension holds the type specific fields of one culture version. The row
// exists only for document types that declare fields.
type Extension struct {
	ID      uint64            `gorm:"column:id;primaryKey;autoIncrement"`
	ClassID uint              `gorm:"column:class_id;not null;index"`
	Fields  datatypes.JSONMap `gorm:"column:fields"`
}

func (Extension) TableName() string {
	return "document_extensions"
}

// Clone returns a deep copy of the extension so the copy can be persisted as
// a new row.
func (e *Extension) Clone() *Extension {
	if e == nil {
		return nil
	}

	fields := make(datatypes.JSONMap, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}

	return &Extension{ID: e.ID, ClassID: e.ClassID, Fields: fields}
}
