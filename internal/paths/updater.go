// Package paths keeps the materialized alias and name paths of the tree
// consistent with the names and placement of its nodes.
package paths

import (
	"context"
	"errors"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
	"github.com/sirupsen/logrus"
)

// Store is the part of the persistence layer the updater reads and writes.
type Store interface {
	GetTreeNode(ctx context.Context, id uint64) (*model.TreeNode, error)
	ListChildNodesAfter(ctx context.Context, parentID uint64, after uint64, limit int) ([]*model.TreeNode, error)
	ListDocuments(ctx context.Context, nodeID uint64) ([]*model.Document, error)
	SiblingAliases(ctx context.Context, parentID uint64, excludeID uint64) ([]string, error)
	SiblingDocumentNames(ctx context.Context, parentID uint64, culture string, excludeID uint64) ([]string, error)
	SetNodePath(ctx context.Context, id uint64, aliasPath string, level int) error
	SetNamePath(ctx context.Context, id uint64, namePath string, urlPath string) error
}

type Options struct {
	// CheckUniqueAliases de-duplicates alias segments against siblings.
	CheckUniqueAliases bool
	// CheckUniqueNames de-duplicates document names against siblings in the
	// same culture.
	CheckUniqueNames bool
	// BatchSize bounds how many children are loaded at once while cascading.
	BatchSize int
}

// Parent is the resolved placement a node is computed against.
type Parent struct {
	Node           *model.TreeNode
	Documents      []*model.Document
	DefaultCulture string
}

// NamePath returns the parent's name path in culture, falling back to the
// default culture and then to any culture.
func (p *Parent) NamePath(culture string) string {
	if d := p.document(culture); d != nil {
		return d.NamePath
	}
	return ""
}

// URLPath returns the parent's URL path in culture with the same fallback as
// NamePath.
func (p *Parent) URLPath(culture string) string {
	if d := p.document(culture); d != nil {
		return d.URLPath
	}
	return ""
}

func (p *Parent) document(culture string) *model.Document {
	if p == nil || len(p.Documents) == 0 {
		return nil
	}

	var fallback *model.Document
	for _, d := range p.Documents {
		if d.Culture == culture {
			return d
		}
		if d.Culture == p.DefaultCulture {
			fallback = d
		}
	}
	if fallback != nil {
		return fallback
	}

	return p.Documents[0]
}

type Updater struct {
	store Store
	opts  Options
}

func NewUpdater(s Store, opts Options) *Updater {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}

	return &Updater{store: s, opts: opts}
}

// WithStore returns an updater with the same options bound to s, used to run
// inside a transaction.
func (u *Updater) WithStore(s Store) *Updater {
	return &Updater{store: s, opts: u.opts}
}

// Compute assigns the alias, alias path and level of node and the name path
// and URL path of doc from parent. A nil parent computes the root. maxLen caps
// the alias segment.
func (u *Updater) Compute(ctx context.Context, node *model.TreeNode, doc *model.Document, parent *Parent, maxLen int) error {
	if parent == nil || parent.Node == nil {
		node.Alias = ""
		node.AliasPath = model.RootAliasPath
		node.Level = 0
		if doc != nil {
			doc.NamePath = "/"
			doc.URLPath = "/"
		}
		return nil
	}

	alias := node.Alias
	if alias == "" {
		alias = SafeAlias(node.Name, maxLen)
	} else {
		alias = SafeAlias(alias, maxLen)
	}
	if alias == "" {
		return errors.New("alias cannot be empty")
	}

	if u.opts.CheckUniqueAliases {
		taken, err := u.store.SiblingAliases(ctx, parent.Node.ID, node.ID)
		if err != nil {
			return err
		}
		alias = UniqueAlias(alias, taken, maxLen)
	}

	node.Alias = alias
	node.AliasPath = Join(parent.Node.AliasPath, alias)
	node.Level = parent.Node.Level + 1

	if doc == nil {
		return nil
	}

	if u.opts.CheckUniqueNames && !node.IsLink() {
		taken, err := u.store.SiblingDocumentNames(ctx, parent.Node.ID, doc.Culture, node.ID)
		if err != nil {
			return err
		}
		doc.Name = UniqueName(doc.Name, taken)
	}

	doc.NamePath = Join(parent.NamePath(doc.Culture), doc.Name)
	doc.URLPath = Join(parent.URLPath(doc.Culture), SafeAlias(doc.Name, 0))

	return nil
}

// Cascade recomputes the paths below node, level by level. With self set the
// culture versions of node itself are refreshed first, which is needed after
// a move. It returns the number of rows rewritten.
func (u *Updater) Cascade(ctx context.Context, node *model.TreeNode, defaultCulture string, self bool) (int, error) {
	updated := 0

	if self && node.ParentID != nil {
		parentNode, err := u.store.GetTreeNode(ctx, *node.ParentID)
		if err != nil {
			return 0, err
		}
		parentDocs, err := u.store.ListDocuments(ctx, parentNode.OriginalID())
		if err != nil {
			return 0, err
		}
		n, err := u.refresh(ctx, node, &Parent{Node: parentNode, Documents: parentDocs, DefaultCulture: defaultCulture})
		if err != nil {
			return 0, err
		}
		updated += n
	}

	level := []*model.TreeNode{node}
	for len(level) > 0 {
		var next []*model.TreeNode
		for _, parentNode := range level {
			parentDocs, err := u.store.ListDocuments(ctx, parentNode.OriginalID())
			if err != nil {
				return updated, err
			}
			parent := &Parent{Node: parentNode, Documents: parentDocs, DefaultCulture: defaultCulture}

			var after uint64
			for {
				children, err := u.store.ListChildNodesAfter(ctx, parentNode.ID, after, u.opts.BatchSize)
				if err != nil {
					return updated, err
				}
				for _, child := range children {
					n, err := u.refresh(ctx, child, parent)
					if err != nil {
						return updated, err
					}
					updated += n
					after = child.ID
				}
				next = append(next, children...)
				if len(children) < u.opts.BatchSize {
					break
				}
			}
		}
		level = next
	}

	if updated > 0 {
		logrus.Infof("path cascade from %s rewrote %d rows", node.AliasPath, updated)
	}

	return updated, nil
}

// refresh rewrites the alias path of node and the name paths of its own
// culture versions when they drifted from parent.
func (u *Updater) refresh(ctx context.Context, node *model.TreeNode, parent *Parent) (int, error) {
	updated := 0

	aliasPath := Join(parent.Node.AliasPath, node.Alias)
	level := parent.Node.Level + 1
	if aliasPath != node.AliasPath || level != node.Level {
		if err := u.store.SetNodePath(ctx, node.ID, aliasPath, level); err != nil {
			return 0, err
		}
		node.AliasPath = aliasPath
		node.Level = level
		updated++
	}

	// culture rows of links belong to the original
	if node.IsLink() {
		return updated, nil
	}

	docs, err := u.store.ListDocuments(ctx, node.ID)
	if err != nil {
		return updated, err
	}
	for _, d := range docs {
		namePath := Join(parent.NamePath(d.Culture), d.Name)
		urlPath := Join(parent.URLPath(d.Culture), SafeAlias(d.Name, 0))
		if namePath == d.NamePath && urlPath == d.URLPath {
			continue
		}
		if err := u.store.SetNamePath(ctx, d.ID, namePath, urlPath); err != nil {
			return updated, err
		}
		updated++
	}

	return updated, nil
}

var _ Store = (store.Store)(nil)
