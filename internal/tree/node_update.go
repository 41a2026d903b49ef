package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
)

// Update writes the changed fields of a stored node. Changing NodeParentID
// moves the node, possibly to another site. Paths of the node, its other
// culture versions and its descendants are recomputed when its name, alias
// or placement changed.
func (n *Node) Update(ctx context.Context) error {
	s := n.svc
	switch {
	case s == nil:
		return invalid("node is not bound to a service")
	case n.status == StatusWasDeleted:
		return inconsistent("node %s was deleted", describe(n))
	case n.status == StatusNew || n.persisted == nil:
		return invalid("node %s must be inserted before it is updated", describe(n))
	}
	if n.Culture.Culture == "" {
		return invalid("document culture is required")
	}
	if len(n.ChangedColumns()) == 0 {
		n.status = StatusUnchanged
		return nil
	}

	stored := n.persisted.Structural
	if !sameID(n.Structural.LinkedNodeID, stored.LinkedNodeID) {
		return invalid("the original of a link cannot be changed")
	}
	if n.Structural.SiteID != stored.SiteID {
		return invalid("a node changes site only by moving under a parent on that site")
	}
	if n.Structural.ClassID != stored.ClassID {
		return invalid("the document type of a node cannot be changed")
	}

	fromSite, err := s.site(ctx, stored.SiteID)
	if err != nil {
		return err
	}

	moved := !sameID(n.Structural.ParentID, stored.ParentID)
	var parent *model.TreeNode
	toSite := fromSite
	if moved {
		if parent, err = n.moveTarget(ctx, &stored); err != nil {
			return err
		}
		if toSite, err = s.site(ctx, parent.SiteID); err != nil {
			return err
		}
		if toSite.ID != fromSite.ID {
			if err = s.cultureAllowed(ctx, s.store, toSite.ID, n.Culture.Culture); err != nil {
				return err
			}
		}
	} else if stored.ParentID != nil {
		if parent, err = s.store.GetTreeNode(ctx, *stored.ParentID); err != nil {
			return lookupFailed("parent node", *stored.ParentID, err)
		}
	}
	crossSite := toSite.ID != fromSite.ID
	cultureChanged := n.cultureChanged()

	backup := n.data()
	if err = n.prepareUpdate(ctx, parent, toSite, moved, crossSite, cultureChanged); err != nil {
		n.restore(backup)
		return err
	}

	event := &Event{Type: EventUpdate, Node: n}
	if moved {
		event.Type = EventMove
		event.Parent = &Node{svc: s, Structural: *parent, site: toSite}
	}
	if !s.proceed(ctx, event) {
		n.restore(backup)
		return nil
	}

	diff := n.diff()
	pathChanged := n.Structural.AliasPath != stored.AliasPath
	renamed := n.Culture.Name != n.persisted.Culture.Name

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.UpdateTreeNode(ctx, &n.Structural); err != nil {
			return err
		}
		if !n.IsLink() || cultureChanged {
			if err := n.saveExtension(ctx, tx); err != nil {
				return err
			}
			if err := tx.UpdateDocument(ctx, &n.Culture); err != nil {
				return err
			}
		}
		if crossSite {
			if err := s.moveToSite(ctx, tx, &n.Structural, n.Culture.ID, fromSite, toSite); err != nil {
				return err
			}
		}
		if pathChanged || renamed || moved {
			if _, err := s.paths.WithStore(tx).Cascade(ctx, &n.Structural, toSite.DefaultCulture, moved); err != nil {
				return err
			}
		}
		if moved && !n.IsLink() {
			doc, err := tx.GetDocument(ctx, n.Culture.ID)
			if err != nil {
				return err
			}
			n.Culture = *doc
		}
		return nil
	})
	if err != nil {
		n.restore(backup)
		return fmt.Errorf("update %s: %w", stored.AliasPath, err)
	}

	old := n.persisted
	n.markPersisted()
	n.forget()

	keys := n.CacheKeys()
	if pathChanged || crossSite {
		keys = cachekey.Merge(keys, old.CacheKeys())
	}
	if moved {
		keys = cachekey.Merge(keys,
			cachekey.ForOrderChange(fromSite.Name, parentPath(stored.AliasPath)),
			cachekey.ForOrderChange(toSite.Name, parent.AliasPath),
		)
	}
	s.touch(ctx, keys)

	if moved {
		s.logEvent(ctx, eventlog.ActionMove, "Document %s moved to %s", n, diff)
	} else {
		s.logEvent(ctx, eventlog.ActionUpdate, "Document %s at %s updated", n, diff)
	}

	return nil
}

// moveTarget loads and checks the new parent of a moved node.
func (n *Node) moveTarget(ctx context.Context, stored *model.TreeNode) (*model.TreeNode, error) {
	s := n.svc
	if stored.ParentID == nil {
		return nil, inconsistent("the root of a site cannot be moved")
	}
	if n.Structural.ParentID == nil {
		return nil, invalid("node %s cannot become a root", stored.AliasPath)
	}

	parent, err := s.store.GetTreeNode(ctx, *n.Structural.ParentID)
	if err != nil {
		return nil, lookupFailed("parent node", *n.Structural.ParentID, err)
	}
	if within(parent, stored) {
		return nil, invalid("node %s cannot be moved below itself", stored.AliasPath)
	}
	if parent.IsLink() {
		original, err := s.store.GetTreeNode(ctx, *parent.LinkedNodeID)
		if err != nil {
			return nil, lookupFailed("original node", *parent.LinkedNodeID, err)
		}
		if within(original, stored) {
			return nil, invalid("node %s cannot be moved below a link to itself", stored.AliasPath)
		}
	}

	return parent, nil
}

// within reports whether node is root or one of its descendants.
func within(node, root *model.TreeNode) bool {
	if node.ID == root.ID {
		return true
	}
	if node.SiteID != root.SiteID {
		return false
	}
	prefix := strings.ToLower(strings.TrimSuffix(root.AliasPath, "/")) + "/"
	return strings.HasPrefix(strings.ToLower(node.AliasPath), prefix)
}

func (n *Node) prepareUpdate(ctx context.Context, parent *model.TreeNode, site *model.Site, moved, crossSite, cultureChanged bool) error {
	s := n.svc
	actor := eventlog.ActorFrom(ctx)
	stored := n.persisted

	// a link only writes the original's culture row when its content changed
	if !n.IsLink() || cultureChanged {
		n.Culture.ModifiedWhen = s.now()
		if actor.ID > 0 {
			n.Culture.ModifiedByUserID = cloneUint64(&actor.ID)
		}
	}

	if !n.IsLink() {
		n.applyNameSource()
		if !n.IsRoot() && strings.TrimSpace(n.Culture.Name) == "" {
			return invalid("document name is required")
		}
		if err := n.typ.checkRequired(n.Extension); err != nil {
			return err
		}

		// the site default culture carries the canonical structural name
		if n.Culture.Culture == site.DefaultCulture && !n.IsRoot() && n.Culture.Name != stored.Culture.Name {
			n.Structural.Name = n.Culture.Name
			if s.settings.UpdateAliasOnRename && n.Structural.Alias == stored.Structural.Alias {
				n.Structural.Alias = ""
			}
		}
	}

	if crossSite {
		n.Structural.SiteID = site.ID
		n.site = site
		if s.settings.GenerateNewGUIDs {
			n.Structural.GUID = uuid.NewString()
			if !n.IsLink() {
				n.Culture.GUID = uuid.NewString()
			}
		}
	}

	if moved && s.settings.AutoOrder {
		last, err := s.store.MaxChildOrder(ctx, parent.ID)
		if err != nil {
			return err
		}
		n.Structural.Order = last + 1
	}

	placement, err := s.placement(ctx, s.store, parent)
	if err != nil {
		return err
	}
	doc := &n.Culture
	if n.IsLink() {
		// the culture row belongs to the original
		doc = nil
	}
	if err = s.paths.Compute(ctx, &n.Structural, doc, placement, n.aliasMaxLength()); err != nil {
		return &ValidationError{Message: "alias of " + describe(n), Err: err}
	}
	if !n.IsLink() && n.Culture.Culture == site.DefaultCulture && !n.IsRoot() {
		n.Structural.Name = n.Culture.Name
	}

	return nil
}

// cultureChanged reports whether any culture or extension field differs from
// the stored state.
func (n *Node) cultureChanged() bool {
	for _, name := range n.ChangedColumns() {
		if !structuralFields[name] {
			return true
		}
	}
	return false
}

// saveExtension updates the extension row, creating it when the document
// has none yet.
func (n *Node) saveExtension(ctx context.Context, tx store.Store) error {
	if n.typ == nil || !n.typ.HasExtension() {
		return nil
	}
	n.ensureExtension()
	n.Extension.ClassID = n.typ.ID()

	if n.Culture.ForeignKey == nil || n.Extension.ID == 0 {
		n.Extension.ID = 0
		if err := tx.CreateExtension(ctx, n.Extension); err != nil {
			return err
		}
		n.Culture.ForeignKey = cloneUint64(&n.Extension.ID)
		return nil
	}

	return tx.UpdateExtension(ctx, n.Extension)
}

// MoveToSite moves n under parent, which may belong to another site. Objects
// related to the moved subtree are reassigned to the destination site.
func (s *Service) MoveToSite(ctx context.Context, n *Node, parent *Node) error {
	if parent == nil || parent.ID() == 0 {
		return invalid("a move needs a stored parent")
	}
	if err := n.SetValue(FieldNodeParentID, parent.ID()); err != nil {
		return err
	}
	return n.Update(ctx)
}

// moveToSite walks the subtree of root level by level and moves it to the
// destination site: nodes change site, categories of other sites are dropped,
// tag groups are matched by name and site movers are called. Links are moved
// but their related objects follow their original. skipDocument is the culture
// row already written by the caller.
func (s *Service) moveToSite(ctx context.Context, tx store.Store, root *model.TreeNode, skipDocument uint64, from, to *model.Site) error {
	level := []*model.TreeNode{root}
	moved := 0
	for len(level) > 0 {
		var next []*model.TreeNode
		for _, node := range level {
			if node.ID != root.ID {
				node.SiteID = to.ID
				if s.settings.GenerateNewGUIDs {
					node.GUID = uuid.NewString()
				}
				if err := tx.UpdateTreeNode(ctx, node); err != nil {
					return err
				}
			}
			if !node.IsLink() {
				if err := s.moveRelated(ctx, tx, node, skipDocument, from, to); err != nil {
					return err
				}
			}
			moved++

			var after uint64
			for {
				children, err := tx.ListChildNodesAfter(ctx, node.ID, after, s.settings.BatchSize)
				if err != nil {
					return err
				}
				next = append(next, children...)
				if len(children) < s.settings.BatchSize {
					break
				}
				after = children[len(children)-1].ID
			}
		}
		level = next
	}

	logrus.Infof("moved %d nodes from site %s to %s", moved, from.Name, to.Name)
	return nil
}

func (s *Service) moveRelated(ctx context.Context, tx store.Store, node *model.TreeNode, skipDocument uint64, from, to *model.Site) error {
	docs, err := tx.ListDocuments(ctx, node.ID)
	if err != nil {
		return err
	}

	for _, d := range docs {
		changed := false
		if s.settings.GenerateNewGUIDs && d.ID != skipDocument {
			d.GUID = uuid.NewString()
			changed = true
		}

		categories, err := tx.ListDocumentCategories(ctx, d.ID)
		if err != nil {
			return err
		}
		var foreign []uint64
		for _, c := range categories {
			if c.SiteID != nil && *c.SiteID != to.ID {
				foreign = append(foreign, c.ID)
			}
		}
		if err = tx.RemoveDocumentCategories(ctx, []uint64{d.ID}, foreign); err != nil {
			return err
		}

		if d.TagGroupID != nil {
			group, err := tx.GetTagGroup(ctx, *d.TagGroupID)
			if err != nil {
				return lookupFailed("tag group", *d.TagGroupID, err)
			}
			if group.SiteID != to.ID {
				d.TagGroupID = nil
				match, err := tx.FindTagGroup(ctx, to.ID, group.Name)
				switch {
				case err == nil:
					d.TagGroupID = &match.ID
				case !errors.Is(err, store.ErrNotFound):
					return err
				}
				if err = tx.DeleteDocumentTags(ctx, []uint64{d.ID}); err != nil {
					return err
				}
				changed = true
			}
		}

		if changed {
			if err = tx.UpdateDocument(ctx, d); err != nil {
				return err
			}
		}
	}

	for _, m := range s.siteMovers {
		if err = m.MoveToSite(ctx, tx, node, docs, from, to); err != nil {
			return err
		}
	}

	// links elsewhere keep pointing at the original, now on another site
	return tx.SetLinkedNodeSite(ctx, node.ID, to.ID)
}

// parentPath returns the alias path of the parent of path.
func parentPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return model.RootAliasPath
	}
	return path[:i]
}
