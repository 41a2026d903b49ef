package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/query"
	"github.com/emrgen/doctree/internal/store"
)

// ChangeToLink turns a stored node into a link to targetNodeID. The node's
// own culture versions, extensions and cross references are removed and
// links that pointed at the node are redirected to the new original. The
// node must not carry unsaved changes.
func (n *Node) ChangeToLink(ctx context.Context, targetNodeID uint64) error {
	s := n.svc
	switch {
	case s == nil:
		return invalid("node is not bound to a service")
	case n.status == StatusWasDeleted:
		return inconsistent("node %s was deleted", describe(n))
	case n.status == StatusNew || n.Structural.ID == 0:
		return invalid("node %s is not stored", describe(n))
	case n.IsLink():
		return invalid("node %s is already a link", describe(n))
	case n.IsRoot():
		return invalid("the root of a site cannot become a link")
	}
	if changed := n.ChangedColumns(); len(changed) > 0 {
		return inconsistent("node %s has unsaved changes to %s", describe(n), strings.Join(changed, ", "))
	}

	target, err := s.original(ctx, s.store, targetNodeID)
	if err != nil {
		return err
	}
	if target.ID == n.ID() {
		return invalid("node %s cannot link to itself", describe(n))
	}

	site, err := s.site(ctx, n.SiteID())
	if err != nil {
		return err
	}
	docs, err := s.allowedDocuments(ctx, target.ID, site.ID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return invalid("no culture of %s is allowed on site %s", target.AliasPath, site.Name)
	}
	t, err := s.TypeByID(ctx, target.ClassID)
	if err != nil {
		return err
	}

	if !s.proceed(ctx, &Event{Type: EventChangeToLink, Node: n, TargetNodeID: target.ID}) {
		return nil
	}
	n.cancelReason = ""

	own, err := s.store.ListDocuments(ctx, n.ID())
	if err != nil {
		return err
	}

	backup := n.data()
	oldKeys := n.CacheKeys()

	n.Structural.LinkedNodeID = &target.ID
	n.Structural.LinkedNodeSiteID = &target.SiteID
	n.Structural.ClassID = target.ClassID

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		d := newDeleter(s, DeleteOptions{})
		d.tx = tx
		if err := d.removeCultures(ctx, &n.Structural, own); err != nil {
			return err
		}
		if err := tx.UpdateTreeNode(ctx, &n.Structural); err != nil {
			return err
		}

		return s.redirectLinks(ctx, tx, n.ID(), target)
	})
	if err != nil {
		n.restore(backup)
		return fmt.Errorf("change %s to link: %w", describe(n), err)
	}

	doc := bestDocument(docs, backup.Culture.Culture, site.DefaultCulture, query.Priority{Preferred: s.settings.PreferredCulture})
	n.Culture = cloneDocument(*doc)
	n.Extension = nil
	// a link reads the original's extension, never its own
	if doc.ForeignKey != nil {
		ext, err := s.store.GetExtension(ctx, *doc.ForeignKey)
		if err != nil {
			return lookupFailed("extension", *doc.ForeignKey, err)
		}
		n.Extension = ext
	}
	n.typ = t
	n.site = site
	n.markPersisted()
	n.forget()

	s.touch(ctx, cachekey.Merge(oldKeys, n.CacheKeys()))
	s.logEvent(ctx, eventlog.ActionChangeToLink, "Document %s changed to a link at %s", n, "")

	return nil
}

// redirectLinks points every link to fromID at target.
func (s *Service) redirectLinks(ctx context.Context, tx store.Store, fromID uint64, target *model.TreeNode) error {
	for {
		// each page is rewritten away from fromID, so the next read starts over
		links, err := tx.ListLinks(ctx, fromID, 0, s.settings.BatchSize)
		if err != nil {
			return err
		}
		for _, link := range links {
			link.LinkedNodeID = &target.ID
			link.LinkedNodeSiteID = &target.SiteID
			link.ClassID = target.ClassID
			if err = tx.UpdateTreeNode(ctx, link); err != nil {
				return err
			}
		}
		if len(links) < s.settings.BatchSize {
			return nil
		}
	}
}
