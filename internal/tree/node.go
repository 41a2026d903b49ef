package tree

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/connected"
	"github.com/emrgen/doctree/internal/model"
)

// Node is one culture version of a tree node. Structural is shared by every
// culture version, Culture is this version's row and Extension holds the
// type specific fields when the type declares any. For links, Culture and
// Extension are read from the original.
type Node struct {
	Structural model.TreeNode
	Culture    model.Document
	Extension  *model.Extension

	svc          *Service
	typ          *DocumentType
	site         *model.Site
	status       Status
	cancelReason string

	// persisted is the stored state the node was read or last written as.
	persisted *Node

	mu        sync.Mutex
	parent    *Node
	parentSet bool
	connected *connected.Repository
}

// ID is the structural id, shared by every culture version.
func (n *Node) ID() uint64 { return n.Structural.ID }

func (n *Node) DocumentID() uint64 { return n.Culture.ID }

func (n *Node) AliasPath() string { return n.Structural.AliasPath }

func (n *Node) SiteID() uint { return n.Structural.SiteID }

// CultureCode is the culture of this version.
func (n *Node) CultureCode() string { return n.Culture.Culture }

// Name is the document name, or the structural name when the node has no
// culture row.
func (n *Node) Name() string {
	if n.Culture.Name != "" {
		return n.Culture.Name
	}
	return n.Structural.Name
}

func (n *Node) Type() *DocumentType { return n.typ }

func (n *Node) Site() *model.Site { return n.site }

func (n *Node) IsLink() bool { return n.Structural.IsLink() }

func (n *Node) IsRoot() bool { return n.Structural.IsRoot() }

// OriginalNodeID is the id of the node owning the culture rows: the linked
// node for links, the node itself otherwise.
func (n *Node) OriginalNodeID() uint64 { return n.Structural.OriginalID() }

func (n *Node) Status() Status { return n.status }

// SetStatus assigns the status directly, typically StatusToBeDeleted before
// Service.Submit. A deleted node rejects every change.
func (n *Node) SetStatus(status Status) error {
	if n.status == StatusWasDeleted {
		return inconsistent("node %s was deleted", describe(n))
	}
	if status == StatusWasDeleted {
		return invalid("status %s is only reached by Delete", status)
	}
	n.status = status
	return nil
}

// CancelReason is the reason a guard gave for cancelling the last mutation,
// empty when it was not cancelled.
func (n *Node) CancelReason() string { return n.cancelReason }

func (n *Node) accessor(name string) (*accessor, bool) {
	if a, ok := partitionAccessors.lookup(name); ok {
		return a, true
	}
	if n.typ != nil {
		return n.typ.accessors.lookup(name)
	}
	return nil, false
}

// GetValue reads a node, culture or extension field by name. Names are
// case-insensitive.
func (n *Node) GetValue(name string) (any, bool) {
	a, ok := n.accessor(name)
	if !ok {
		return nil, false
	}
	return a.get(n), true
}

// SetValue assigns a field by name, converting v to the field's kind. Setting
// a field of an unchanged node marks it changed.
func (n *Node) SetValue(name string, v any) error {
	if n.status == StatusWasDeleted {
		return inconsistent("node %s was deleted", describe(n))
	}
	a, ok := n.accessor(name)
	if !ok {
		return invalid("unknown field %s", name)
	}
	if a.set == nil {
		return invalid("field %s is read-only", a.name)
	}
	if err := a.set(n, v); err != nil {
		return &ValidationError{Message: "field " + a.name, Err: err}
	}

	if n.status == StatusUnchanged && n.persisted != nil && !sameValue(a.get(n), a.get(n.persisted)) {
		n.status = StatusChanged
	}
	return nil
}

// ChangedColumns lists the fields that differ from the stored state, sorted.
// A new node reports nothing.
func (n *Node) ChangedColumns() []string {
	if n.persisted == nil {
		return nil
	}

	var changed []string
	for _, name := range n.fieldNames() {
		a, _ := n.accessor(name)
		if !sameValue(a.get(n), a.get(n.persisted)) {
			changed = append(changed, a.name)
		}
	}
	return changed
}

func (n *Node) fieldNames() []string {
	names := partitionAccessors.names()
	if n.typ != nil {
		names = append(names, n.typ.accessors.names()...)
	}
	return names
}

func (n *Node) changedStructural() bool {
	for _, name := range n.ChangedColumns() {
		if structuralFields[name] {
			return true
		}
	}
	return false
}

func (n *Node) diff() string {
	if n.persisted == nil {
		return ""
	}

	var b strings.Builder
	for _, name := range n.ChangedColumns() {
		a, _ := n.accessor(name)
		fmt.Fprintf(&b, "%s: %v -> %v\n", a.name, display(a.get(n.persisted)), display(a.get(n)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func display(v any) any {
	if v == nil {
		return "<nil>"
	}
	return v
}

// CacheKeys returns the cache dependency keys of the node's current state.
func (n *Node) CacheKeys() []string {
	info := cachekey.Info{
		AliasPath:  n.Structural.AliasPath,
		Culture:    n.Culture.Culture,
		NodeGUID:   n.Structural.GUID,
		NodeID:     n.Structural.ID,
		DocumentID: n.Culture.ID,
	}
	if n.site != nil {
		info.SiteName = n.site.Name
	}
	if n.typ != nil {
		info.ClassName = n.typ.Name()
	}
	if n.Structural.LinkedNodeID != nil {
		info.LinkedNodeID = *n.Structural.LinkedNodeID
	}
	if n.Structural.GroupID != nil {
		info.GroupID = *n.Structural.GroupID
	}

	return cachekey.ForNode(info)
}

// Parent returns the parent node in this node's culture, combined with the
// site default culture. The root has no parent. The result is cached for the
// lifetime of the instance.
func (n *Node) Parent(ctx context.Context) (*Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.parentSet {
		return n.parent, nil
	}
	if n.Structural.ParentID == nil {
		n.parentSet = true
		return nil, nil
	}

	parent, err := n.svc.SelectSingleNodeByID(ctx, *n.Structural.ParentID, n.Culture.Culture, true)
	if err != nil {
		return nil, err
	}
	n.parent = parent
	n.parentSet = true

	return parent, nil
}

// Connected returns the repository of collections related to the node.
func (n *Node) Connected() *connected.Repository {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.connected == nil {
		n.connected = n.svc.connectedFor(n)
	}
	return n.connected
}

// forget drops the cached parent and connected collections.
func (n *Node) forget() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.parent = nil
	n.parentSet = false
	if n.connected != nil {
		n.connected.Reset()
	}
}

func (n *Node) ensureExtension() {
	if n.Extension == nil {
		n.Extension = &model.Extension{}
		if n.typ != nil {
			n.Extension.ClassID = n.typ.ID()
		}
	}
	if n.Extension.Fields == nil {
		n.Extension.Fields = map[string]any{}
	}
}

// data copies the partitions, deep enough that later edits of either copy
// do not leak into the other.
func (n *Node) data() *Node {
	return &Node{
		Structural: cloneTreeNode(n.Structural),
		Culture:    cloneDocument(n.Culture),
		Extension:  n.Extension.Clone(),
		typ:        n.typ,
		site:       n.site,
	}
}

// restore puts back partitions copied by data, used when a write failed.
func (n *Node) restore(backup *Node) {
	n.Structural = backup.Structural
	n.Culture = backup.Culture
	n.Extension = backup.Extension
	n.typ = backup.typ
	n.site = backup.site
}

// markPersisted records the current state as stored.
func (n *Node) markPersisted() {
	n.persisted = n.data()
	n.status = StatusUnchanged
}

func cloneTreeNode(t model.TreeNode) model.TreeNode {
	t.ParentID = cloneUint64(t.ParentID)
	t.LinkedNodeID = cloneUint64(t.LinkedNodeID)
	t.GroupID = cloneUint64(t.GroupID)
	t.OwnerID = cloneUint64(t.OwnerID)
	if t.LinkedNodeSiteID != nil {
		v := *t.LinkedNodeSiteID
		t.LinkedNodeSiteID = &v
	}
	return t
}

func cloneDocument(d model.Document) model.Document {
	d.WorkflowStepID = cloneUint64(d.WorkflowStepID)
	d.CheckedOutVersionHistoryID = cloneUint64(d.CheckedOutVersionHistoryID)
	d.PublishedVersionHistoryID = cloneUint64(d.PublishedVersionHistoryID)
	d.CreatedByUserID = cloneUint64(d.CreatedByUserID)
	d.ModifiedByUserID = cloneUint64(d.ModifiedByUserID)
	d.TagGroupID = cloneUint64(d.TagGroupID)
	d.ForeignKey = cloneUint64(d.ForeignKey)
	if d.PublishFrom != nil {
		v := *d.PublishFrom
		d.PublishFrom = &v
	}
	if d.PublishTo != nil {
		v := *d.PublishTo
		d.PublishTo = &v
	}
	if d.CustomData != nil {
		d.CustomData = append(d.CustomData[:0:0], d.CustomData...)
	}
	return d
}

func cloneUint64(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// subject adapts a node to the event log.
type subject struct {
	n    *Node
	diff string
}

func (s subject) DisplayName() string { return s.n.Name() }
func (s subject) AliasPath() string   { return s.n.Structural.AliasPath }
func (s subject) NodeID() uint64      { return s.n.Structural.ID }
func (s subject) DocumentID() uint64  { return s.n.Culture.ID }
func (s subject) SiteID() uint        { return s.n.Structural.SiteID }
func (s subject) Culture() string     { return s.n.Culture.Culture }
func (s subject) Diff() string        { return s.diff }
