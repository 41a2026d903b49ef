package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAncestors(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{path: "/", want: []string{"/"}},
		{path: "", want: []string{"/"}},
		{path: "/A", want: []string{"/", "/A"}},
		{path: "/A/B/C", want: []string{"/", "/A", "/A/B", "/A/B/C"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Ancestors(tt.path))
		})
	}
}

func TestForNode(t *testing.T) {
	keys := ForNode(Info{
		SiteName:     "Corporate",
		AliasPath:    "/Products/Phones",
		Culture:      "en-US",
		ClassName:    "cms.menuitem",
		NodeGUID:     "0b9e6c7e-43aa-4c7d-8b6f-e2e9b4ab0c01",
		NodeID:       12,
		LinkedNodeID: 7,
		DocumentID:   30,
		GroupID:      4,
	})

	assert.Equal(t, []string{
		"node|corporate|/",
		"node|corporate|/|en-us",
		"node|corporate|/products",
		"node|corporate|/products|en-us",
		"node|corporate|/products/phones",
		"node|corporate|/products/phones|en-us",
		"node|corporate|/products/phones/%",
		"nodeid|12",
		"nodeid|7",
		"documentid|30",
		"documentid|30|attachments",
		"nodes|corporate|cms.menuitem|all",
		"nodeguid|corporate|0b9e6c7e-43aa-4c7d-8b6f-e2e9b4ab0c01",
		"nodegroup|4",
	}, keys)
}

func TestForNode_Minimal(t *testing.T) {
	keys := ForNode(Info{SiteName: "s", AliasPath: "/"})
	assert.Equal(t, []string{"node|s|/", "node|s|/%"}, keys)
}

func TestForNode_Deterministic(t *testing.T) {
	info := Info{SiteName: "s", AliasPath: "/A/B", Culture: "de-DE", NodeID: 3, DocumentID: 9, ClassName: "page"}
	assert.Equal(t, ForNode(info), ForNode(info))
}

func TestForOrderChange(t *testing.T) {
	assert.Equal(t, []string{"node|site|/a/%", NodeOrderKey}, ForOrderChange("site", "/A"))
	assert.Equal(t, []string{"node|site|/%", NodeOrderKey}, ForOrderChange("site", "/"))
}

func TestMerge(t *testing.T) {
	merged := Merge([]string{"a", "b"}, []string{"b", "c"}, nil)
	assert.Equal(t, []string{"a", "b", "c"}, merged)
}
