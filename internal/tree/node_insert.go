package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/paths"
	"github.com/emrgen/doctree/internal/query"
	"github.com/emrgen/doctree/internal/store"
)

// Insert writes a new node under parent, or as the root of its site when
// parent is nil. The culture defaults to the preferred culture, then the
// site default, and must be allowed on the site. Non-root nodes need a name.
func (n *Node) Insert(ctx context.Context, parent *Node) error {
	s := n.svc
	if s == nil || n.typ == nil {
		return invalid("node is not bound to a document type")
	}
	if n.status != StatusNew {
		return inconsistent("node %s is already inserted", describe(n))
	}

	var parentNode *model.TreeNode
	if parent != nil {
		if parent.ID() == 0 || parent.status == StatusWasDeleted {
			return invalid("parent of %s is not stored", describe(n))
		}
		p, err := s.store.GetTreeNode(ctx, parent.ID())
		if err != nil {
			return lookupFailed("parent node", parent.ID(), err)
		}
		parentNode = p
		n.Structural.SiteID = p.SiteID
	} else {
		if n.Structural.SiteID == 0 {
			return invalid("a root node needs a site")
		}
		_, err := s.store.GetRootNode(ctx, n.Structural.SiteID)
		switch {
		case err == nil:
			return inconsistent("site %d already has a root", n.Structural.SiteID)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	site, err := s.site(ctx, n.Structural.SiteID)
	if err != nil {
		return err
	}

	backup := n.data()
	n.site = site
	if err = n.prepareInsert(ctx, site, parentNode); err != nil {
		n.restore(backup)
		return err
	}

	if !s.proceed(ctx, &Event{Type: EventInsert, Node: n, Parent: parent}) {
		n.restore(backup)
		return nil
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateTreeNode(ctx, &n.Structural); err != nil {
			return err
		}
		return n.createCulture(ctx, tx)
	})
	if err != nil {
		n.restore(backup)
		return fmt.Errorf("insert %s: %w", describe(n), err)
	}

	n.markPersisted()
	n.forget()

	s.touch(ctx, n.CacheKeys())
	s.logEvent(ctx, eventlog.ActionCreate, "Document %s created at %s", n, "")

	return nil
}

func (n *Node) prepareInsert(ctx context.Context, site *model.Site, parent *model.TreeNode) error {
	s := n.svc
	now := s.now()
	actor := eventlog.ActorFrom(ctx)

	if n.Culture.Culture == "" {
		n.Culture.Culture = site.DefaultCulture
		if s.settings.PreferredCulture != "" {
			n.Culture.Culture = s.settings.PreferredCulture
		}
	}
	if err := s.cultureAllowed(ctx, s.store, site.ID, n.Culture.Culture); err != nil {
		return err
	}

	n.applyNameSource()
	if parent != nil && strings.TrimSpace(n.Culture.Name) == "" {
		return invalid("document name is required")
	}
	if err := n.typ.checkRequired(n.Extension); err != nil {
		return err
	}

	if n.Structural.GUID == "" {
		n.Structural.GUID = uuid.NewString()
	}
	if n.Culture.GUID == "" {
		n.Culture.GUID = uuid.NewString()
	}
	n.Structural.ID = 0
	n.Structural.ClassID = n.typ.ID()
	n.Structural.LinkedNodeID = nil
	n.Structural.LinkedNodeSiteID = nil
	n.Structural.Name = n.Culture.Name
	n.Culture.ID = 0

	if parent != nil {
		n.Structural.ParentID = &parent.ID
		n.Structural.ACLID = parent.ACLID
		n.Structural.IsACLOwner = false
		if n.Structural.GroupID == nil {
			n.Structural.GroupID = cloneUint64(parent.GroupID)
		}
	} else {
		n.Structural.ParentID = nil
		n.Structural.Order = 0
	}
	if n.Structural.OwnerID == nil && actor.ID > 0 {
		n.Structural.OwnerID = cloneUint64(&actor.ID)
	}

	n.Culture.CreatedWhen = now
	n.Culture.ModifiedWhen = now
	if actor.ID > 0 {
		n.Culture.CreatedByUserID = cloneUint64(&actor.ID)
		n.Culture.ModifiedByUserID = cloneUint64(&actor.ID)
	}
	step, err := s.workflow.CurrentStep(ctx, n)
	if err != nil {
		return fmt.Errorf("workflow step of %s: %w", describe(n), err)
	}
	n.Culture.WorkflowStepID = step

	if parent != nil && s.settings.AutoOrder {
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
	if err = s.paths.Compute(ctx, &n.Structural, &n.Culture, placement, n.aliasMaxLength()); err != nil {
		return &ValidationError{Message: "alias of " + describe(n), Err: err}
	}
	n.Structural.Name = n.Culture.Name

	return nil
}

// createCulture writes the extension and culture rows of a stored node.
func (n *Node) createCulture(ctx context.Context, tx store.Store) error {
	n.Culture.ForeignKey = nil
	if n.typ.HasExtension() {
		n.ensureExtension()
		n.Extension.ID = 0
		n.Extension.ClassID = n.typ.ID()
		if err := tx.CreateExtension(ctx, n.Extension); err != nil {
			return err
		}
		n.Culture.ForeignKey = cloneUint64(&n.Extension.ID)
	}

	n.Culture.NodeID = n.Structural.ID
	return tx.CreateDocument(ctx, &n.Culture)
}

// InsertAsNewCultureVersion stores the node's culture data as a new version
// in culture. The node must be stored and still under its stored parent.
func (n *Node) InsertAsNewCultureVersion(ctx context.Context, culture string) error {
	s := n.svc
	if s == nil || n.typ == nil {
		return invalid("node is not bound to a document type")
	}
	if n.status == StatusWasDeleted {
		return inconsistent("node %s was deleted", describe(n))
	}
	if n.Structural.ID == 0 {
		return invalid("node must be inserted before adding a culture version")
	}
	if n.IsLink() {
		return invalid("link %s has no culture versions of its own", describe(n))
	}
	if culture == "" {
		return invalid("culture is required")
	}

	stored, err := s.store.GetTreeNode(ctx, n.ID())
	if err != nil {
		return lookupFailed("node", n.ID(), err)
	}
	if !sameID(stored.ParentID, n.Structural.ParentID) {
		return invalid("node %s has a different parent than stored; move it with Update first", describe(n))
	}

	site, err := s.site(ctx, stored.SiteID)
	if err != nil {
		return err
	}
	if err = s.cultureAllowed(ctx, s.store, site.ID, culture); err != nil {
		return err
	}
	_, err = s.store.GetDocumentByCulture(ctx, stored.ID, culture)
	switch {
	case err == nil:
		return invalid("culture version %s of %s already exists", culture, stored.AliasPath)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	backup := n.data()
	if err = n.prepareCulture(ctx, site, stored, culture); err != nil {
		n.restore(backup)
		return err
	}
	renamed := n.Structural.Name != stored.Name || n.Structural.AliasPath != stored.AliasPath

	if !s.proceed(ctx, &Event{Type: EventInsertCulture, Node: n, Culture: culture}) {
		n.restore(backup)
		return nil
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := n.createCulture(ctx, tx); err != nil {
			return err
		}
		if renamed {
			if err := tx.UpdateTreeNode(ctx, &n.Structural); err != nil {
				return err
			}
		}
		_, err := s.paths.WithStore(tx).Cascade(ctx, &n.Structural, site.DefaultCulture, false)
		return err
	})
	if err != nil {
		n.restore(backup)
		return fmt.Errorf("insert culture %s of %s: %w", culture, stored.AliasPath, err)
	}

	n.markPersisted()
	n.forget()

	keys := n.CacheKeys()
	if stored.AliasPath != n.Structural.AliasPath {
		old := n.data()
		old.Structural = *stored
		keys = cachekey.Merge(keys, old.CacheKeys())
	}
	s.touch(ctx, keys)
	s.logEvent(ctx, eventlog.ActionCreateCulture, "Culture version of %s created at %s", n, "")

	return nil
}

func (n *Node) prepareCulture(ctx context.Context, site *model.Site, stored *model.TreeNode, culture string) error {
	s := n.svc
	now := s.now()
	actor := eventlog.ActorFrom(ctx)

	n.Structural = cloneTreeNode(*stored)
	n.site = site

	n.Culture.ID = 0
	n.Culture.GUID = uuid.NewString()
	n.Culture.Culture = culture
	n.Culture.NodeID = stored.ID
	n.Culture.ForeignKey = nil
	n.Culture.CheckedOutVersionHistoryID = nil
	n.Culture.PublishedVersionHistoryID = nil
	n.Culture.CreatedWhen = now
	n.Culture.ModifiedWhen = now
	n.Culture.CreatedByUserID = nil
	n.Culture.ModifiedByUserID = nil
	if actor.ID > 0 {
		n.Culture.CreatedByUserID = cloneUint64(&actor.ID)
		n.Culture.ModifiedByUserID = cloneUint64(&actor.ID)
	}
	step, err := s.workflow.CurrentStep(ctx, n)
	if err != nil {
		return fmt.Errorf("workflow step of %s: %w", describe(n), err)
	}
	n.Culture.WorkflowStepID = step

	n.applyNameSource()
	if !n.IsRoot() && strings.TrimSpace(n.Culture.Name) == "" {
		return invalid("document name is required")
	}

	if n.typ.HasExtension() {
		ext := n.Extension.Clone()
		if ext == nil {
			if ext, err = n.typ.newExtension(); err != nil {
				return err
			}
		}
		ext.ID = 0
		n.Extension = ext
		if err = n.typ.checkRequired(ext); err != nil {
			return err
		}
	}

	// the site default culture carries the canonical structural name
	if culture == site.DefaultCulture && !n.IsRoot() {
		n.Structural.Name = n.Culture.Name
		if s.settings.UpdateAliasOnRename && n.Structural.Name != stored.Name {
			n.Structural.Alias = ""
		}
	}

	var parent *model.TreeNode
	if stored.ParentID != nil {
		if parent, err = s.store.GetTreeNode(ctx, *stored.ParentID); err != nil {
			return lookupFailed("parent node", *stored.ParentID, err)
		}
	}
	placement, err := s.placement(ctx, s.store, parent)
	if err != nil {
		return err
	}
	if err = s.paths.Compute(ctx, &n.Structural, &n.Culture, placement, n.aliasMaxLength()); err != nil {
		return &ValidationError{Message: "alias of " + describe(n), Err: err}
	}
	if culture == site.DefaultCulture && !n.IsRoot() {
		n.Structural.Name = n.Culture.Name
	}

	return nil
}

type linkOptions struct {
	owner *uint64
	group *uint64
}

// LinkOption adjusts a link created by InsertAsLink.
type LinkOption func(o *linkOptions)

// WithOwner makes userID the owner of the link instead of the current actor.
func WithOwner(userID uint64) LinkOption {
	return func(o *linkOptions) { o.owner = &userID }
}

// WithGroup assigns the link to a group instead of the parent's group.
func WithGroup(groupID uint64) LinkOption {
	return func(o *linkOptions) { o.group = &groupID }
}

// InsertAsLink creates a link to the node under parent and returns it. The
// node is not modified. Linking a link links its original, so links never
// point at links. The original needs at least one culture allowed on the
// parent's site.
func (n *Node) InsertAsLink(ctx context.Context, parent *Node, opts ...LinkOption) (*Node, error) {
	s := n.svc
	if s == nil {
		return nil, invalid("node is not bound to a service")
	}
	if n.status == StatusWasDeleted {
		return nil, inconsistent("node %s was deleted", describe(n))
	}
	if n.Structural.ID == 0 {
		return nil, invalid("only stored nodes can be linked")
	}
	if parent == nil || parent.ID() == 0 {
		return nil, invalid("a link needs a stored parent")
	}

	options := &linkOptions{}
	for _, opt := range opts {
		opt(options)
	}

	original, err := s.original(ctx, s.store, n.OriginalNodeID())
	if err != nil {
		return nil, err
	}
	parentNode, err := s.store.GetTreeNode(ctx, parent.ID())
	if err != nil {
		return nil, lookupFailed("parent node", parent.ID(), err)
	}
	if original.IsRoot() {
		return nil, invalid("the root of a site cannot be linked")
	}
	if parentNode.ID == original.ID {
		return nil, invalid("node %s cannot be linked under itself", original.AliasPath)
	}

	site, err := s.site(ctx, parentNode.SiteID)
	if err != nil {
		return nil, err
	}
	docs, err := s.allowedDocuments(ctx, original.ID, site.ID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, invalid("no culture of %s is allowed on site %s", original.AliasPath, site.Name)
	}

	t, err := s.TypeByID(ctx, original.ClassID)
	if err != nil {
		return nil, err
	}

	actor := eventlog.ActorFrom(ctx)
	link := cloneTreeNode(n.Structural)
	link.ID = 0
	link.GUID = uuid.NewString()
	link.ParentID = &parentNode.ID
	link.SiteID = parentNode.SiteID
	link.ClassID = original.ClassID
	link.LinkedNodeID = &original.ID
	link.LinkedNodeSiteID = &original.SiteID
	link.ACLID = parentNode.ACLID
	link.IsACLOwner = false
	link.GroupID = cloneUint64(parentNode.GroupID)
	if options.group != nil {
		link.GroupID = options.group
	}
	link.OwnerID = cloneUint64(parentNode.OwnerID)
	if actor.ID > 0 {
		link.OwnerID = cloneUint64(&actor.ID)
	}
	if options.owner != nil {
		link.OwnerID = options.owner
	}
	if link.Name == "" {
		link.Name = original.Name
	}
	if link.Alias == "" {
		link.Alias = original.Alias
	}
	if strings.TrimSpace(link.Name) == "" || paths.SafeAlias(link.Alias, 0) == "" {
		return nil, invalid("a link needs a name and an alias")
	}

	if s.settings.AutoOrder {
		last, err := s.store.MaxChildOrder(ctx, parentNode.ID)
		if err != nil {
			return nil, err
		}
		link.Order = last + 1
	}

	linkNode := &Node{svc: s, typ: t, site: site, status: StatusNew, Structural: link}
	placement, err := s.placement(ctx, s.store, parentNode)
	if err != nil {
		return nil, err
	}
	if err = s.paths.Compute(ctx, &linkNode.Structural, nil, placement, linkNode.aliasMaxLength()); err != nil {
		return nil, &ValidationError{Message: "alias of link", Err: err}
	}

	// content reads through to the original's best matching culture
	doc := bestDocument(docs, n.Culture.Culture, site.DefaultCulture, query.Priority{Preferred: s.settings.PreferredCulture})
	linkNode.Culture = cloneDocument(*doc)
	if doc.ForeignKey != nil {
		if linkNode.Extension, err = s.store.GetExtension(ctx, *doc.ForeignKey); err != nil {
			return nil, lookupFailed("extension", *doc.ForeignKey, err)
		}
	}

	if !s.proceed(ctx, &Event{Type: EventInsertLink, Node: linkNode, Parent: parent}) {
		n.cancelReason = linkNode.cancelReason
		return nil, nil
	}
	n.cancelReason = ""

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		return tx.CreateTreeNode(ctx, &linkNode.Structural)
	})
	if err != nil {
		return nil, fmt.Errorf("insert link to %s: %w", original.AliasPath, err)
	}

	linkNode.markPersisted()

	s.touch(ctx, linkNode.CacheKeys())
	s.logEvent(ctx, eventlog.ActionCreateLink, "Link %s created at %s", linkNode, "")

	return linkNode, nil
}

// original loads the node owning the culture rows of id, following a link
// if id is one.
func (s *Service) original(ctx context.Context, st store.Store, id uint64) (*model.TreeNode, error) {
	node, err := st.GetTreeNode(ctx, id)
	if err != nil {
		return nil, lookupFailed("original node", id, err)
	}
	if node.IsLink() {
		linked := *node.LinkedNodeID
		if node, err = st.GetTreeNode(ctx, linked); err != nil {
			return nil, lookupFailed("original node", linked, err)
		}
	}
	return node, nil
}

// allowedDocuments lists the culture rows of nodeID whose culture is allowed
// on siteID.
func (s *Service) allowedDocuments(ctx context.Context, nodeID uint64, siteID uint) ([]*model.Document, error) {
	docs, err := s.store.ListDocuments(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	cultures, err := s.store.ListSiteCultures(ctx, siteID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(cultures))
	for _, c := range cultures {
		allowed[c] = true
	}

	out := docs[:0]
	for _, d := range docs {
		if allowed[d.Culture] {
			out = append(out, d)
		}
	}
	return out, nil
}

func bestDocument(docs []*model.Document, requested, siteDefault string, priority query.Priority) *model.Document {
	cultures := make([]string, 0, len(docs))
	for _, d := range docs {
		cultures = append(cultures, d.Culture)
	}
	best, ok := query.BestCulture(cultures, requested, siteDefault, priority)
	if !ok {
		return nil
	}
	for _, d := range docs {
		if d.Culture == best {
			return d
		}
	}
	return nil
}

func (s *Service) placement(ctx context.Context, st store.Store, parent *model.TreeNode) (*paths.Parent, error) {
	if parent == nil {
		return nil, nil
	}

	docs, err := st.ListDocuments(ctx, parent.OriginalID())
	if err != nil {
		return nil, err
	}
	site, err := s.site(ctx, parent.SiteID)
	if err != nil {
		return nil, err
	}

	return &paths.Parent{Node: parent, Documents: docs, DefaultCulture: site.DefaultCulture}, nil
}

// applyNameSource copies the type's name source field into the document name.
func (n *Node) applyNameSource() {
	field := n.typ.Model.NameSourceField
	if field == "" || strings.EqualFold(field, FieldDocumentName) {
		return
	}
	v, ok := n.GetValue(field)
	if !ok || v == nil {
		return
	}
	if name, err := toString(v); err == nil && strings.TrimSpace(name) != "" {
		n.Culture.Name = name
	}
}

func (n *Node) aliasMaxLength() int {
	if n.typ != nil && n.typ.Model.AliasMaxLength > 0 {
		return n.typ.Model.AliasMaxLength
	}
	return n.svc.settings.AliasMaxLength
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
