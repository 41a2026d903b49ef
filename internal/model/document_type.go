package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldInteger  FieldKind = "integer"
	FieldDecimal  FieldKind = "decimal"
	FieldBoolean  FieldKind = "boolean"
	FieldDateTime FieldKind = "datetime"
	FieldGUID     FieldKind = "guid"
)

// FieldDefinition declares one extension field of a document type.
type FieldDefinition struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required,omitempty"`
	Default  any       `json:"default,omitempty"`
}

// DocumentType (class) describes the shape of a node's extension partition
// and how its name is derived.
type DocumentType struct {
	ID              uint           `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string         `gorm:"column:name;not null;uniqueIndex"`
	DisplayName     string         `gorm:"column:display_name"`
	NameSourceField string         `gorm:"column:name_source_field"`
	AliasMaxLength  int            `gorm:"column:alias_max_length;not null;default:0"`
	Fields          datatypes.JSON `gorm:"column:fields"`
}

func (DocumentType) TableName() string {
	return "document_types"
}

// FieldDefinitions decodes the declared extension fields.
func (t *DocumentType) FieldDefinitions() ([]FieldDefinition, error) {
	if len(t.Fields) == 0 {
		return nil, nil
	}

	var defs []FieldDefinition
	if err := json.Unmarshal(t.Fields, &defs); err != nil {
		return nil, err
	}

	return defs, nil
}

// SetFieldDefinitions encodes defs into the Fields column.
func (t *DocumentType) SetFieldDefinitions(defs []FieldDefinition) error {
	if len(defs) == 0 {
		t.Fields = nil
		return nil
	}

	data, err := json.Marshal(defs)
	if err != nil {
		return err
	}
	t.Fields = data

	return nil
}
