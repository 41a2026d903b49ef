// Package query holds the node selection descriptor and the pure row policies
// applied to every selection: culture combination and link de-duplication.
package query

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/emrgen/doctree/internal/store"
)

const (
	// AllCultures selects every culture version.
	AllCultures = "##ALL##"
	// AllSites selects nodes of every site.
	AllSites = "##ALL##"
)

// Descriptor is the selection input: which nodes, in which culture, how
// filtered and ordered. The zero value selects every node of every site in
// every culture.
type Descriptor struct {
	SiteName                  string
	AliasPath                 string
	Culture                   string
	CombineWithDefaultCulture bool
	ClassNames                []string
	Where                     []store.Clause
	OrderBy                   []string
	// MaxRelativeLevel limits wildcard paths to this many levels below the
	// path prefix; negative means unlimited.
	MaxRelativeLevel int
	PublishedOnly    bool
	// Columns projects the loaded rows; entries are prefixed with n. for
	// structural or d. for culture columns.
	Columns          []string
	TopN             int
	FilterDuplicates bool
	ExcludeLinks     bool
	CategoryID       *uint64
	TagID            *uint64
	NodeIDs          []uint64
	NodeGUIDs        []string
	DocumentIDs      []uint64
	ParentID         *uint64
	LinkedTo         *uint64
}

// NewDescriptor returns a descriptor with unlimited depth.
func NewDescriptor() *Descriptor {
	return &Descriptor{MaxRelativeLevel: -1}
}

func (d *Descriptor) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.TopN, validation.Min(0)),
		validation.Field(&d.AliasPath, validation.When(d.AliasPath != "",
			validation.By(func(value any) error {
				if !strings.HasPrefix(value.(string), "/") {
					return errors.New("alias path must start with /")
				}
				return nil
			}))),
		validation.Field(&d.Columns, validation.Each(validation.By(func(value any) error {
			c := value.(string)
			if !strings.HasPrefix(c, "n.") && !strings.HasPrefix(c, "d.") {
				return errors.New("column must be prefixed with n. or d.")
			}
			return nil
		}))),
	)
}

// AllCultureRows reports whether the descriptor reads every culture.
func (d *Descriptor) AllCultureRows() bool {
	return d.Culture == "" || d.Culture == AllCultures
}

// AllSiteRows reports whether the descriptor reads every site.
func (d *Descriptor) AllSiteRows() bool {
	return d.SiteName == "" || d.SiteName == AllSites
}

// SplitColumns separates structural from culture columns, stripping prefixes.
func (d *Descriptor) SplitColumns() (node []string, document []string) {
	for _, c := range d.Columns {
		switch {
		case strings.HasPrefix(c, "n."):
			node = append(node, strings.TrimPrefix(c, "n."))
		case strings.HasPrefix(c, "d."):
			document = append(document, strings.TrimPrefix(c, "d."))
		}
	}
	return node, document
}

// BaseLevel returns the level of the fixed prefix of a path pattern:
// "/" and "/%" are 0, "/A/%" is 1, "/A/B" is 2.
func BaseLevel(pattern string) int {
	prefix := pattern
	if i := strings.Index(prefix, "%"); i >= 0 {
		prefix = prefix[:i]
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return 0
	}

	return strings.Count(prefix, "/") + 1
}

// IsPattern reports whether the alias path contains a wildcard.
func IsPattern(path string) bool {
	return strings.Contains(path, "%")
}
