package tree

import (
	"context"
	"fmt"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
)

// MoveUp swaps n with its previous sibling. The first child stays put.
func (s *Service) MoveUp(ctx context.Context, n *Node) error {
	return s.reorder(ctx, n, func(index, _ int) int { return index - 1 })
}

// MoveDown swaps n with its next sibling. The last child stays put.
func (s *Service) MoveDown(ctx context.Context, n *Node) error {
	return s.reorder(ctx, n, func(index, _ int) int { return index + 1 })
}

// SetOrder moves n to position among its siblings, counted from 0 and
// clamped to the sibling range. Siblings are renumbered without gaps.
func (s *Service) SetOrder(ctx context.Context, n *Node, position int) error {
	return s.reorder(ctx, n, func(int, int) int { return position })
}

func (s *Service) reorder(ctx context.Context, n *Node, target func(index, count int) int) error {
	switch {
	case n == nil || n.Structural.ID == 0:
		return invalid("a stored node is required")
	case n.status == StatusWasDeleted:
		return inconsistent("node %s was deleted", describe(n))
	case n.IsRoot():
		return invalid("the root of a site has no siblings")
	}

	parentID := *n.Structural.ParentID
	siblings, err := s.store.ListChildNodes(ctx, parentID)
	if err != nil {
		return err
	}
	index := indexOf(siblings, n.ID())
	if index < 0 {
		return inconsistent("node %s is not a child of %d", describe(n), parentID)
	}
	position := clamp(target(index, len(siblings)), 0, len(siblings)-1)
	if position == index && ordered(siblings) {
		return nil
	}

	if !s.proceed(ctx, &Event{Type: EventOrder, Node: n, Order: position}) {
		return nil
	}
	n.cancelReason = ""

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		siblings, err := tx.ListChildNodes(ctx, parentID)
		if err != nil {
			return err
		}
		index := indexOf(siblings, n.ID())
		if index < 0 {
			return inconsistent("node %s is not a child of %d", describe(n), parentID)
		}

		moved := siblings[index]
		rest := append(siblings[:index:index], siblings[index+1:]...)
		position := clamp(position, 0, len(rest))
		reordered := make([]*model.TreeNode, 0, len(siblings))
		reordered = append(reordered, rest[:position]...)
		reordered = append(reordered, moved)
		reordered = append(reordered, rest[position:]...)

		for i, sibling := range reordered {
			if sibling.Order == i {
				continue
			}
			if err := tx.SetNodeOrder(ctx, sibling.ID, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("order %s: %w", describe(n), err)
	}

	n.Structural.Order = position
	if n.persisted != nil {
		n.persisted.Structural.Order = position
	}

	siteName := ""
	if site, err := s.site(ctx, n.SiteID()); err == nil {
		siteName = site.Name
	}
	s.touch(ctx, cachekey.ForOrderChange(siteName, parentPath(n.AliasPath())))
	s.logEvent(ctx, eventlog.ActionOrder, "Order of %s changed at %s", n, "")

	return nil
}

func indexOf(nodes []*model.TreeNode, id uint64) int {
	for i, node := range nodes {
		if node.ID == id {
			return i
		}
	}
	return -1
}

// ordered reports whether sibling orders already run 0..n-1.
func ordered(nodes []*model.TreeNode) bool {
	for i, node := range nodes {
		if node.Order != i {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
