package tree

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/query"
	"github.com/emrgen/doctree/internal/store"
)

// DeleteOptions tune Node.Delete.
type DeleteOptions struct {
	// AllCultures deletes every culture version and with it the node.
	AllCultures bool
	// DestroyHistory also removes the version history of deleted versions.
	DestroyHistory bool
	// KeepChildren moves the children of a deleted node to its parent
	// instead of deleting them.
	KeepChildren bool
	// AllowRoot permits deleting the last culture version of a site root.
	AllowRoot bool
}

// Delete removes this culture version. When it is the last one, or for a
// link, or with AllCultures, the node itself is removed together with its
// links, its subtree unless KeepChildren is set, and every cross reference
// of its culture versions. It reports whether the structural row was removed.
func (n *Node) Delete(ctx context.Context, opts DeleteOptions) (bool, error) {
	s := n.svc
	switch {
	case s == nil:
		return false, invalid("node is not bound to a service")
	case n.status == StatusWasDeleted:
		return false, inconsistent("node %s was deleted", describe(n))
	case n.status == StatusNew || n.Structural.ID == 0:
		return false, invalid("node %s is not stored", describe(n))
	}

	last := n.IsLink() || opts.AllCultures
	if !last {
		count, err := s.store.CountDocuments(ctx, n.ID())
		if err != nil {
			return false, err
		}
		last = count <= 1
	}
	if last && n.IsRoot() && !opts.AllowRoot {
		return false, inconsistent("the last culture version of the root of site %d is only deleted with AllowRoot", n.SiteID())
	}
	if last && n.IsRoot() && opts.KeepChildren {
		return false, invalid("children of a root have no parent to move to")
	}

	site, err := s.site(ctx, n.SiteID())
	if err != nil {
		return false, err
	}
	n.site = site

	if !s.proceed(ctx, &Event{Type: EventDelete, Node: n, Culture: n.Culture.Culture, AllCultures: opts.AllCultures}) {
		return false, nil
	}

	d := newDeleter(s, opts)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		d.tx = tx
		if last {
			return d.deleteNode(ctx, &n.Structural)
		}
		return d.deleteCulture(ctx, n, site)
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", describe(n), err)
	}

	n.status = StatusWasDeleted
	n.forget()

	keys := cachekey.Merge(n.CacheKeys(), d.cacheKeys(ctx))
	if last && n.Structural.ParentID != nil {
		keys = cachekey.Merge(keys, cachekey.ForOrderChange(site.Name, parentPath(n.Structural.AliasPath)))
	}
	s.touch(ctx, keys)

	if last {
		if d.count > 1 {
			logrus.Infof("deleted %s with %d nodes", n.Structural.AliasPath, d.count)
		}
		s.logEvent(ctx, eventlog.ActionDelete, "Document %s deleted from %s", n, "")
	} else {
		s.logEvent(ctx, eventlog.ActionDeleteCulture, "Culture version of %s deleted from %s", n, "")
	}

	return last, nil
}

type deletedNode struct {
	node *model.TreeNode
	docs []*model.Document
}

// deleter removes nodes inside one transaction and remembers what it removed
// so cache keys can be built after commit.
type deleter struct {
	svc     *Service
	tx      store.Store
	opts    DeleteOptions
	visited mapset.Set[uint64]
	deleted []deletedNode
	count   int
}

func newDeleter(s *Service, opts DeleteOptions) *deleter {
	return &deleter{svc: s, opts: opts, visited: mapset.NewThreadUnsafeSet[uint64]()}
}

// deleteNode removes root with its subtree, or moves its children up first
// when KeepChildren is set.
func (d *deleter) deleteNode(ctx context.Context, root *model.TreeNode) error {
	if d.opts.KeepChildren {
		if err := d.reparentChildren(ctx, root); err != nil {
			return err
		}
		return d.deleteOne(ctx, root)
	}

	return d.deleteTree(ctx, root)
}

// deleteTree removes root and its descendants, deepest first.
func (d *deleter) deleteTree(ctx context.Context, root *model.TreeNode) error {
	nodes, err := d.subtree(ctx, root)
	if err != nil {
		return err
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		if err = d.deleteOne(ctx, nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// subtree lists root and its descendants level by level.
func (d *deleter) subtree(ctx context.Context, root *model.TreeNode) ([]*model.TreeNode, error) {
	nodes := []*model.TreeNode{root}
	for i := 0; i < len(nodes); i++ {
		children, err := d.children(ctx, nodes[i].ID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, children...)
	}
	return nodes, nil
}

func (d *deleter) children(ctx context.Context, parentID uint64) ([]*model.TreeNode, error) {
	var (
		out   []*model.TreeNode
		after uint64
	)
	for {
		page, err := d.tx.ListChildNodesAfter(ctx, parentID, after, d.svc.settings.BatchSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < d.svc.settings.BatchSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

func (d *deleter) deleteOne(ctx context.Context, node *model.TreeNode) error {
	if !d.visited.Add(node.ID) {
		return nil
	}

	var docs []*model.Document
	if !node.IsLink() {
		if err := d.deleteLinks(ctx, node.ID); err != nil {
			return err
		}
		var err error
		if docs, err = d.tx.ListDocuments(ctx, node.ID); err != nil {
			return err
		}
		if err = d.removeCultures(ctx, node, docs); err != nil {
			return err
		}
	}

	if err := d.tx.DeleteTreeNode(ctx, node.ID); err != nil {
		return err
	}
	d.deleted = append(d.deleted, deletedNode{node: node, docs: docs})
	d.count++

	return nil
}

// deleteLinks removes every link to originalID with the link's own subtree.
func (d *deleter) deleteLinks(ctx context.Context, originalID uint64) error {
	var after uint64
	for {
		links, err := d.tx.ListLinks(ctx, originalID, after, d.svc.settings.BatchSize)
		if err != nil {
			return err
		}
		for _, link := range links {
			if err = d.deleteTree(ctx, link); err != nil {
				return err
			}
		}
		if len(links) < d.svc.settings.BatchSize {
			return nil
		}
		after = links[len(links)-1].ID
	}
}

// removeCultures deletes culture rows with their extensions and cross
// references.
func (d *deleter) removeCultures(ctx context.Context, node *model.TreeNode, docs []*model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	if err := d.tx.DeleteDocumentCategories(ctx, ids); err != nil {
		return err
	}
	if err := d.tx.DeleteDocumentTags(ctx, ids); err != nil {
		return err
	}
	if d.opts.DestroyHistory {
		if err := d.tx.DeleteVersionHistory(ctx, ids); err != nil {
			return err
		}
	}
	for _, c := range d.svc.cleaners {
		if err := c.Clean(ctx, d.tx, node, docs); err != nil {
			return err
		}
	}

	for _, doc := range docs {
		if doc.ForeignKey != nil {
			if err := d.tx.DeleteExtension(ctx, *doc.ForeignKey); err != nil {
				return err
			}
		}
		if err := d.tx.DeleteDocument(ctx, doc.ID); err != nil {
			return err
		}
	}

	return nil
}

// reparentChildren moves the children of node under node's parent.
func (d *deleter) reparentChildren(ctx context.Context, node *model.TreeNode) error {
	s := d.svc
	parent, err := d.tx.GetTreeNode(ctx, *node.ParentID)
	if err != nil {
		return lookupFailed("parent node", *node.ParentID, err)
	}
	site, err := s.site(ctx, parent.SiteID)
	if err != nil {
		return err
	}

	children, err := d.children(ctx, node.ID)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}

	last, err := d.tx.MaxChildOrder(ctx, parent.ID)
	if err != nil {
		return err
	}
	placement, err := s.placement(ctx, d.tx, parent)
	if err != nil {
		return err
	}
	updater := s.paths.WithStore(d.tx)

	for i, child := range children {
		t, err := s.TypeByID(ctx, child.ClassID)
		if err != nil {
			return err
		}
		child.ParentID = &parent.ID
		if s.settings.AutoOrder {
			child.Order = last + 1 + i
		}
		maxLen := t.Model.AliasMaxLength
		if maxLen <= 0 {
			maxLen = s.settings.AliasMaxLength
		}
		if err = updater.Compute(ctx, child, nil, placement, maxLen); err != nil {
			return &ValidationError{Message: "alias of " + child.AliasPath, Err: err}
		}
		if err = d.tx.UpdateTreeNode(ctx, child); err != nil {
			return err
		}
		if _, err = updater.Cascade(ctx, child, site.DefaultCulture, true); err != nil {
			return err
		}
	}

	return nil
}

// deleteCulture removes one culture version of a node that keeps others.
func (d *deleter) deleteCulture(ctx context.Context, n *Node, site *model.Site) error {
	doc := n.Culture
	if err := d.removeCultures(ctx, &n.Structural, []*model.Document{&doc}); err != nil {
		return err
	}

	// the structural name follows the best remaining culture
	remaining, err := d.tx.ListDocuments(ctx, n.ID())
	if err != nil {
		return err
	}
	if best := bestDocument(remaining, site.DefaultCulture, site.DefaultCulture, query.Priority{Preferred: d.svc.settings.PreferredCulture}); best != nil && !n.IsRoot() && best.Name != n.Structural.Name {
		n.Structural.Name = best.Name
		if err = d.tx.UpdateTreeNode(ctx, &n.Structural); err != nil {
			return err
		}
	}

	_, err = d.svc.paths.WithStore(d.tx).Cascade(ctx, &n.Structural, site.DefaultCulture, false)
	return err
}

// cacheKeys builds the keys of every removed node and culture version.
func (d *deleter) cacheKeys(ctx context.Context) []string {
	var lists [][]string
	for _, removed := range d.deleted {
		info := cachekey.Info{
			AliasPath: removed.node.AliasPath,
			NodeGUID:  removed.node.GUID,
			NodeID:    removed.node.ID,
		}
		if site, err := d.svc.site(ctx, removed.node.SiteID); err == nil {
			info.SiteName = site.Name
		}
		if t, err := d.svc.TypeByID(ctx, removed.node.ClassID); err == nil {
			info.ClassName = t.Name()
		}
		if removed.node.LinkedNodeID != nil {
			info.LinkedNodeID = *removed.node.LinkedNodeID
		}
		if removed.node.GroupID != nil {
			info.GroupID = *removed.node.GroupID
		}

		if len(removed.docs) == 0 {
			lists = append(lists, cachekey.ForNode(info))
			continue
		}
		for _, doc := range removed.docs {
			info.Culture = doc.Culture
			info.DocumentID = doc.ID
			lists = append(lists, cachekey.ForNode(info))
		}
	}

	return cachekey.Merge(lists...)
}
