package paths

import (
	"strconv"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultAliasMaxLength caps alias segments of types that do not declare a
// length of their own.
const DefaultAliasMaxLength = 50

// SafeAlias turns a node name into an alias segment: letters, digits, dot,
// underscore and dash are kept, every other run of characters becomes one
// dash, and the result is capped at maxLen runes.
func SafeAlias(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultAliasMaxLength
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			dash = r == '-'
			continue
		}
		if !dash {
			b.WriteRune('-')
			dash = true
		}
	}

	alias := strings.Trim(b.String(), "-")
	runes := []rune(alias)
	if len(runes) > maxLen {
		alias = strings.TrimRight(string(runes[:maxLen]), "-")
	}

	return alias
}

// UniqueAlias appends -1, -2, ... to alias until it differs from every taken
// alias (case-insensitive), keeping the result within maxLen.
func UniqueAlias(alias string, taken []string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultAliasMaxLength
	}

	used := lowerSet(taken)
	if !used.Contains(strings.ToLower(alias)) {
		return alias
	}

	for i := 1; ; i++ {
		suffix := "-" + strconv.Itoa(i)
		base := []rune(alias)
		if len(base)+len(suffix) > maxLen {
			base = base[:max(0, maxLen-len(suffix))]
		}
		candidate := string(base) + suffix
		if !used.Contains(strings.ToLower(candidate)) {
			return candidate
		}
	}
}

// UniqueName appends " (1)", " (2)", ... to name until it differs from every
// taken name (case-insensitive).
func UniqueName(name string, taken []string) string {
	used := lowerSet(taken)
	if !used.Contains(strings.ToLower(name)) {
		return name
	}

	for i := 1; ; i++ {
		candidate := name + " (" + strconv.Itoa(i) + ")"
		if !used.Contains(strings.ToLower(candidate)) {
			return candidate
		}
	}
}

// Join appends segment to parent, which may or may not end with a slash.
func Join(parent, segment string) string {
	return strings.TrimSuffix(parent, "/") + "/" + segment
}

func lowerSet(values []string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, v := range values {
		set.Add(strings.ToLower(v))
	}
	return set
}
