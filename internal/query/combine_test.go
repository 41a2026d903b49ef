package query

import (
	"testing"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
	"github.com/stretchr/testify/assert"
)

func row(nodeID uint64, linked uint64, culture string) *store.NodeRow {
	n := &model.TreeNode{ID: nodeID, SiteID: 1}
	if linked > 0 {
		n.LinkedNodeID = &linked
	}
	r := &store.NodeRow{Node: n}
	if culture != "" {
		r.Document = &model.Document{NodeID: n.OriginalID(), Culture: culture}
	}
	return r
}

func cultures(rows []*store.NodeRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Document == nil {
			out = append(out, "")
			continue
		}
		out = append(out, r.Document.Culture)
	}
	return out
}

func english(uint) string { return "en-US" }

func TestCombine(t *testing.T) {
	tests := []struct {
		name    string
		rows    []*store.NodeRow
		culture string
		combine bool
		want    []string
	}{
		{
			name:    "exact culture only",
			rows:    []*store.NodeRow{row(1, 0, "en-US"), row(1, 0, "de-DE"), row(2, 0, "en-US")},
			culture: "de-DE",
			want:    []string{"de-DE"},
		},
		{
			name:    "fallback to site default",
			rows:    []*store.NodeRow{row(1, 0, "en-US"), row(1, 0, "de-DE"), row(2, 0, "en-US")},
			culture: "de-DE",
			combine: true,
			want:    []string{"de-DE", "en-US"},
		},
		{
			name:    "no fallback to non-default culture",
			rows:    []*store.NodeRow{row(1, 0, "fr-FR")},
			culture: "de-DE",
			combine: true,
			want:    []string{},
		},
		{
			name:    "requested culture is the default",
			rows:    []*store.NodeRow{row(1, 0, "en-US"), row(2, 0, "en-US")},
			culture: "en-US",
			combine: true,
			want:    []string{"en-US", "en-US"},
		},
		{
			name:    "all cultures kept",
			rows:    []*store.NodeRow{row(1, 0, "de-DE"), row(1, 0, "en-US"), row(2, 0, "")},
			culture: AllCultures,
			want:    []string{"de-DE", "en-US", ""},
		},
		{
			name:    "all cultures collapsed to the site default",
			rows:    []*store.NodeRow{row(1, 0, "de-DE"), row(1, 0, "en-US"), row(2, 0, "fr-FR"), row(2, 0, "cs-CZ")},
			culture: AllCultures,
			combine: true,
			want:    []string{"en-US", "cs-CZ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.rows, tt.culture, tt.combine, english, Priority{})
			assert.Equal(t, tt.want, cultures(got))
		})
	}
}

func TestCombine_Idempotent(t *testing.T) {
	rows := []*store.NodeRow{row(1, 0, "en-US"), row(1, 0, "de-DE"), row(2, 0, "en-US"), row(3, 0, "fr-FR")}

	once := Combine(rows, "de-DE", true, english, Priority{})
	twice := Combine(once, "de-DE", true, english, Priority{})
	assert.Equal(t, once, twice)

	once = Combine(rows, AllCultures, true, english, Priority{})
	twice = Combine(once, AllCultures, true, english, Priority{})
	assert.Equal(t, once, twice)
}

func TestCombine_PreferredCulture(t *testing.T) {
	rows := []*store.NodeRow{row(1, 0, "en-US"), row(1, 0, "de-DE"), row(1, 0, "cs-CZ")}

	got := Combine(rows, AllCultures, true, english, Priority{Preferred: "cs-CZ"})
	assert.Equal(t, []string{"cs-CZ"}, cultures(got))
}

func TestCombine_CustomTieBreak(t *testing.T) {
	rows := []*store.NodeRow{row(1, 0, "cs-CZ"), row(1, 0, "fr-FR")}
	reverse := func(a, b string) bool { return a > b }

	got := Combine(rows, AllCultures, true, english, Priority{Others: reverse})
	assert.Equal(t, []string{"fr-FR"}, cultures(got))
}

func TestBestCulture(t *testing.T) {
	c, ok := BestCulture([]string{"fr-FR", "en-US", "de-DE"}, "de-DE", "en-US", Priority{})
	assert.True(t, ok)
	assert.Equal(t, "de-DE", c)

	c, ok = BestCulture([]string{"fr-FR", "en-US"}, "de-DE", "en-US", Priority{})
	assert.True(t, ok)
	assert.Equal(t, "en-US", c)

	c, ok = BestCulture([]string{"fr-FR", "cs-CZ"}, AllCultures, "en-US", Priority{})
	assert.True(t, ok)
	assert.Equal(t, "cs-CZ", c)

	_, ok = BestCulture(nil, "en-US", "en-US", Priority{})
	assert.False(t, ok)
}

func TestFilterDuplicates(t *testing.T) {
	link := row(5, 1, "en-US")
	original := row(1, 0, "en-US")
	german := row(1, 0, "de-DE")
	lonelyLink := row(6, 2, "en-US")
	other := row(3, 0, "en-US")

	got := FilterDuplicates([]*store.NodeRow{link, original, german, lonelyLink, other})
	assert.Equal(t, []*store.NodeRow{original, german, lonelyLink, other}, got)
}

func TestFilterDuplicates_TwoLinks(t *testing.T) {
	a := row(5, 1, "en-US")
	b := row(6, 1, "en-US")

	got := FilterDuplicates([]*store.NodeRow{a, b})
	assert.Equal(t, []*store.NodeRow{a}, got)
}
