package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseLevel(t *testing.T) {
	tests := []struct {
		pattern string
		want    int
	}{
		{"/", 0},
		{"/%", 0},
		{"/A", 1},
		{"/A/%", 1},
		{"/A/B", 2},
		{"/A/B/%", 2},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseLevel(tt.pattern))
		})
	}
}

func TestDescriptor_Validate(t *testing.T) {
	d := NewDescriptor()
	d.AliasPath = "/A/%"
	d.Columns = []string{"n.alias_path", "d.name"}
	assert.NoError(t, d.Validate())

	d.AliasPath = "A"
	assert.Error(t, d.Validate())

	d.AliasPath = "/"
	d.Columns = []string{"name"}
	assert.Error(t, d.Validate())

	d.Columns = nil
	d.TopN = -1
	assert.Error(t, d.Validate())
}

func TestDescriptor_SplitColumns(t *testing.T) {
	d := &Descriptor{Columns: []string{"n.alias_path", "d.name", "n.level"}}
	node, doc := d.SplitColumns()
	assert.Equal(t, []string{"alias_path", "level"}, node)
	assert.Equal(t, []string{"name"}, doc)
}

func TestDescriptor_Scope(t *testing.T) {
	d := NewDescriptor()
	assert.True(t, d.AllCultureRows())
	assert.True(t, d.AllSiteRows())
	assert.Equal(t, -1, d.MaxRelativeLevel)

	d.Culture = "en-US"
	d.SiteName = "corporate"
	assert.False(t, d.AllCultureRows())
	assert.False(t, d.AllSiteRows())
}
