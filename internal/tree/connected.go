package tree

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/connected"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/query"
)

// Names of the collections every node offers. Children of one type are
// named ChildrenPrefix followed by the type name.
const (
	CollectionChildren        = "Children"
	CollectionLinks           = "Links"
	CollectionCultureVersions = "CultureVersions"
	CollectionDocumentsOnPath = "DocumentsOnPath"
	CollectionTags            = "Tags"
	CollectionCategories      = "Categories"
	CollectionHistory         = "History"
	ChildrenPrefix            = "Children."
)

const (
	targetNode     = "node"
	targetTag      = "tag"
	targetCategory = "category"
	targetHistory  = "history"
)

// connectedFor describes the collections related to n.
func (s *Service) connectedFor(n *Node) *connected.Repository {
	culture := n.Culture.Culture
	if culture == "" {
		culture = query.AllCultures
	}
	combine := s.settings.CombineWithDefaultCulture

	documents := func(where string, args ...any) connected.Descriptor {
		return connected.Descriptor{
			Kind:                      connected.Documents,
			Target:                    targetNode,
			Where:                     where,
			Args:                      args,
			Culture:                   culture,
			CombineWithDefaultCulture: combine,
		}
	}

	fixed := map[string]func() connected.Descriptor{
		CollectionChildren: func() connected.Descriptor {
			d := documents("n.parent_id = ?", n.ID())
			d.OrderBy = "n.node_order"
			return d
		},
		CollectionLinks: func() connected.Descriptor {
			return documents("n.linked_node_id = ?", n.OriginalNodeID())
		},
		CollectionCultureVersions: func() connected.Descriptor {
			d := documents("n.id = ?", n.ID())
			d.Culture = query.AllCultures
			d.CombineWithDefaultCulture = false
			d.OrderBy = "d.culture"
			return d
		},
		CollectionDocumentsOnPath: func() connected.Descriptor {
			d := documents("n.site_id = ? AND n.alias_path IN ?", n.SiteID(), cachekey.Ancestors(n.AliasPath()))
			d.OrderBy = "n.level"
			return d
		},
		CollectionTags: func() connected.Descriptor {
			return connected.Descriptor{Kind: connected.Objects, Target: targetTag, Args: []any{n.DocumentID()}}
		},
		CollectionCategories: func() connected.Descriptor {
			return connected.Descriptor{Kind: connected.Objects, Target: targetCategory, Args: []any{n.DocumentID()}}
		},
		CollectionHistory: func() connected.Descriptor {
			return connected.Descriptor{Kind: connected.Objects, Target: targetHistory, Args: []any{n.DocumentID()}}
		},
	}

	names := func() []string {
		out := make([]string, 0, len(fixed))
		for name := range fixed {
			out = append(out, name)
		}
		for _, t := range s.types.names() {
			out = append(out, ChildrenPrefix+t)
		}
		return out
	}

	resolve := func(name string) (connected.Descriptor, bool) {
		if describe, ok := fixed[name]; ok {
			return describe(), true
		}
		typeName, ok := strings.CutPrefix(name, ChildrenPrefix)
		if !ok {
			return connected.Descriptor{}, false
		}
		t, ok := s.types.get(typeName)
		if !ok {
			return connected.Descriptor{}, false
		}
		d := documents("n.parent_id = ? AND n.class_id = ?", n.ID(), t.ID())
		d.OrderBy = "n.node_order"
		return d, true
	}

	return connected.NewDynamic(s.loadConnected, names, resolve)
}

// loadConnected executes one collection descriptor.
func (s *Service) loadConnected(ctx context.Context, d connected.Descriptor) ([]any, error) {
	if d.Kind == connected.Documents {
		q := s.Query().
			Culture(d.Culture).
			CombineWithDefaultCulture(d.CombineWithDefaultCulture).
			Published(d.PublishedOnly)
		if d.Where != "" {
			q.Where(d.Where, d.Args...)
		}
		if d.OrderBy != "" {
			q.OrderBy(d.OrderBy)
		}
		nodes, err := q.Find(ctx)
		if err != nil {
			return nil, err
		}
		return items(nodes), nil
	}

	documentID, _ := d.Args[0].(uint64)
	if documentID == 0 {
		return nil, nil
	}

	switch d.Target {
	case targetTag:
		tags, err := s.store.ListDocumentTags(ctx, documentID)
		return items(tags), err
	case targetCategory:
		categories, err := s.store.ListDocumentCategories(ctx, documentID)
		return items(categories), err
	case targetHistory:
		history, err := s.store.ListVersionHistory(ctx, documentID)
		if err != nil {
			return nil, err
		}
		sortHistory(history)
		return items(history), nil
	}

	return nil, fmt.Errorf("%w: target %s", connected.ErrUnknownCollection, d.Target)
}

// sortHistory orders versions newest first by version number. Versions
// whose number does not parse keep their stored order after the others.
func sortHistory(history []*model.VersionHistory) {
	versions := make(map[uint64]*semver.Version, len(history))
	for _, h := range history {
		if v, err := semver.NewVersion(h.VersionNumber); err == nil {
			versions[h.ID] = v
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		vi, iok := versions[history[i].ID]
		vj, jok := versions[history[j].ID]
		switch {
		case iok && jok:
			return vj.LessThan(vi)
		default:
			return iok && !jok
		}
	})
}

func items[T any](list []T) []any {
	out := make([]any, 0, len(list))
	for _, v := range list {
		out = append(out, v)
	}
	return out
}
