package tree

import "github.com/emrgen/doctree/internal/paths"

// DefaultBatchSize is the page size of batch enumeration.
const DefaultBatchSize = 500

// Settings are the behavior toggles of a Service. They are fixed at
// construction; no process-wide defaults are consulted.
type Settings struct {
	// AutoOrder appends new and moved nodes after their last sibling.
	AutoOrder bool
	// CheckUniqueNames suffixes document names that clash with a sibling in
	// the same culture.
	CheckUniqueNames bool
	// CheckUniqueAliases suffixes alias segments that clash with a sibling.
	CheckUniqueAliases bool
	// TouchCacheDependencies emits cache dependency keys after each mutation.
	TouchCacheDependencies bool
	// LogEvents writes audit records for mutations.
	LogEvents bool
	// GenerateNewGUIDs regenerates node and document GUIDs on cross-site moves.
	GenerateNewGUIDs bool
	// CheckLinkConsistency lets maintenance remove links whose original is
	// gone.
	CheckLinkConsistency bool
	// UpdateAliasOnRename recomputes the alias segment when the node is
	// renamed in the site default culture.
	UpdateAliasOnRename bool
	// PreferredCulture wins when all-culture results are collapsed to one
	// row per node.
	PreferredCulture string
	// CombineWithDefaultCulture is the default fallback policy of queries.
	CombineWithDefaultCulture bool
	// AliasMaxLength caps alias segments of types that declare no length.
	AliasMaxLength int
	BatchSize      int
}

// DefaultSettings returns the settings used by New when none are tuned.
func DefaultSettings() Settings {
	return Settings{
		AutoOrder:                 true,
		CheckUniqueNames:          false,
		CheckUniqueAliases:        true,
		TouchCacheDependencies:    true,
		LogEvents:                 true,
		GenerateNewGUIDs:          true,
		CheckLinkConsistency:      true,
		UpdateAliasOnRename:       true,
		CombineWithDefaultCulture: false,
		AliasMaxLength:            paths.DefaultAliasMaxLength,
		BatchSize:                 DefaultBatchSize,
	}
}

func (s Settings) normalized() Settings {
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.AliasMaxLength <= 0 {
		s.AliasMaxLength = paths.DefaultAliasMaxLength
	}
	return s
}

func (s Settings) pathOptions() paths.Options {
	return paths.Options{
		CheckUniqueAliases: s.CheckUniqueAliases,
		CheckUniqueNames:   s.CheckUniqueNames,
		BatchSize:          s.BatchSize,
	}
}
