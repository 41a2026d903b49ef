package tree

import (
	"context"

	"github.com/emrgen/doctree/internal/query"
)

// ForEachChild calls fn for every direct child of parent in the parent's
// culture. Children are read in pages.
func (s *Service) ForEachChild(ctx context.Context, parent *Node, fn func(*Node) error) error {
	if parent == nil || parent.ID() == 0 {
		return invalid("a stored parent is required")
	}

	return each(ctx, s.related(parent).Children(parent.ID()), fn)
}

// ForEachDescendant calls fn for every node below root, at any depth.
func (s *Service) ForEachDescendant(ctx context.Context, root *Node, fn func(*Node) error) error {
	if root == nil || root.ID() == 0 {
		return invalid("a stored node is required")
	}

	q := s.related(root).
		Path(descendantPattern(root.AliasPath())).
		Where("n.site_id = ?", root.SiteID()).
		Where("n.level > ?", root.Structural.Level)
	return each(ctx, q, fn)
}

// ForEachCultureVersion calls fn for every culture version of n. For a link
// these are the versions of its original as seen through the link.
func (s *Service) ForEachCultureVersion(ctx context.Context, n *Node, fn func(*Node) error) error {
	if n == nil || n.ID() == 0 {
		return invalid("a stored node is required")
	}

	q := s.Query().
		Culture(query.AllCultures).
		CombineWithDefaultCulture(false).
		IDs(n.ID())
	return each(ctx, q, fn)
}

// ForEachLink calls fn for every link pointing at n's original.
func (s *Service) ForEachLink(ctx context.Context, n *Node, fn func(*Node) error) error {
	if n == nil || n.ID() == 0 {
		return invalid("a stored node is required")
	}

	return each(ctx, s.related(n).LinksTo(n.OriginalNodeID()), fn)
}

// related starts a query in n's culture, combined per the settings.
func (s *Service) related(n *Node) *NodeQuery {
	q := s.Query()
	if n.Culture.Culture != "" {
		q.Culture(n.Culture.Culture)
	}
	return q
}

func each(ctx context.Context, q *NodeQuery, fn func(*Node) error) error {
	return q.ForEachBatch(ctx, func(nodes []*Node) error {
		for _, n := range nodes {
			if err := fn(n); err != nil {
				return err
			}
		}
		return nil
	})
}

func descendantPattern(path string) string {
	if path == "" || path == "/" {
		return "/%"
	}
	return path + "/%"
}
