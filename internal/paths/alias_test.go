package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeAlias(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "plain", input: "Products", want: "Products"},
		{name: "spaces", input: "  New  Products ", want: "New-Products"},
		{name: "symbols", input: "Q&A / FAQ?", want: "Q-A-FAQ"},
		{name: "keeps dots", input: "v1.2_beta-3", want: "v1.2_beta-3"},
		{name: "unicode letters", input: "Über uns", want: "Über-uns"},
		{name: "capped", input: "abcdefghij", maxLen: 4, want: "abcd"},
		{name: "capped trailing dash", input: "abc def", maxLen: 4, want: "abc"},
		{name: "empty", input: "???", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeAlias(tt.input, tt.maxLen))
		})
	}
}

func TestUniqueAlias(t *testing.T) {
	assert.Equal(t, "news", UniqueAlias("news", []string{"about"}, 0))
	assert.Equal(t, "news-1", UniqueAlias("news", []string{"News"}, 0))
	assert.Equal(t, "news-2", UniqueAlias("news", []string{"news", "news-1"}, 0))
	assert.Equal(t, "new-1", UniqueAlias("news", []string{"news"}, 5))
}

func TestUniqueName(t *testing.T) {
	assert.Equal(t, "Home", UniqueName("Home", nil))
	assert.Equal(t, "Home (1)", UniqueName("Home", []string{"home"}))
	assert.Equal(t, "Home (2)", UniqueName("Home", []string{"Home", "Home (1)"}))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/Products", Join("/", "Products"))
	assert.Equal(t, "/Products", Join("", "Products"))
	assert.Equal(t, "/A/B", Join("/A", "B"))
	assert.Equal(t, "/A/B", Join("/A/", "B"))
}
