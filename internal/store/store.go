package store

import (
	"context"
	"time"

	"github.com/emrgen/doctree/internal/model"
)

type Store interface {
	SiteStore
	DocumentTypeStore
	TreeNodeStore
	DocumentStore
	ExtensionStore
	ReferenceStore
	EventLogStore
	NodeQueryStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type SiteStore interface {
	// CreateSite creates a new site.
	CreateSite(ctx context.Context, site *model.Site) error
	// GetSite retrieves a site by ID.
	GetSite(ctx context.Context, id uint) (*model.Site, error)
	// GetSiteByName retrieves a site by its code name.
	GetSiteByName(ctx context.Context, name string) (*model.Site, error)
	// ListSites retrieves all sites.
	ListSites(ctx context.Context) ([]*model.Site, error)
	// AddSiteCulture allows a culture on a site.
	AddSiteCulture(ctx context.Context, siteID uint, culture string) error
	// ListSiteCultures retrieves the cultures allowed on a site.
	ListSiteCultures(ctx context.Context, siteID uint) ([]string, error)
	// IsCultureAllowed reports whether the culture is allowed on the site.
	IsCultureAllowed(ctx context.Context, siteID uint, culture string) (bool, error)
}

type DocumentTypeStore interface {
	// CreateDocumentType creates a new document type.
	CreateDocumentType(ctx context.Context, t *model.DocumentType) error
	// UpdateDocumentType updates a document type.
	UpdateDocumentType(ctx context.Context, t *model.DocumentType) error
	// GetDocumentType retrieves a document type by ID.
	GetDocumentType(ctx context.Context, id uint) (*model.DocumentType, error)
	// GetDocumentTypeByName retrieves a document type by its code name.
	GetDocumentTypeByName(ctx context.Context, name string) (*model.DocumentType, error)
	// ListDocumentTypes retrieves all document types.
	ListDocumentTypes(ctx context.Context) ([]*model.DocumentType, error)
}

type TreeNodeStore interface {
	// CreateTreeNode creates a structural row and assigns its ID.
	CreateTreeNode(ctx context.Context, node *model.TreeNode) error
	// UpdateTreeNode saves every column of a structural row.
	UpdateTreeNode(ctx context.Context, node *model.TreeNode) error
	// DeleteTreeNode deletes a structural row by ID.
	DeleteTreeNode(ctx context.Context, id uint64) error
	// GetTreeNode retrieves a structural row by ID.
	GetTreeNode(ctx context.Context, id uint64) (*model.TreeNode, error)
	// GetTreeNodeByPath retrieves a structural row by site and alias path.
	GetTreeNodeByPath(ctx context.Context, siteID uint, aliasPath string) (*model.TreeNode, error)
	// GetRootNode retrieves the root of a site.
	GetRootNode(ctx context.Context, siteID uint) (*model.TreeNode, error)
	// ListChildNodes retrieves the direct children of a node in sibling order.
	ListChildNodes(ctx context.Context, parentID uint64) ([]*model.TreeNode, error)
	// ListChildNodesAfter retrieves at most limit children with ID greater than after.
	ListChildNodesAfter(ctx context.Context, parentID uint64, after uint64, limit int) ([]*model.TreeNode, error)
	// ListLinks retrieves at most limit links pointing at the original with ID greater than after.
	ListLinks(ctx context.Context, originalID uint64, after uint64, limit int) ([]*model.TreeNode, error)
	// ListDanglingLinks retrieves at most limit links whose original no longer exists, with ID greater than after.
	ListDanglingLinks(ctx context.Context, after uint64, limit int) ([]*model.TreeNode, error)
	// CountChildNodes counts the direct children of a node.
	CountChildNodes(ctx context.Context, parentID uint64) (int64, error)
	// MaxChildOrder returns the highest sibling order under parentID, -1 if none.
	MaxChildOrder(ctx context.Context, parentID uint64) (int, error)
	// SiblingAliases retrieves the aliases of parentID's children except excludeID.
	SiblingAliases(ctx context.Context, parentID uint64, excludeID uint64) ([]string, error)
	// SetNodeOrder sets the sibling order of a node.
	SetNodeOrder(ctx context.Context, id uint64, order int) error
	// SetNodePath sets the alias path and level of a node.
	SetNodePath(ctx context.Context, id uint64, aliasPath string, level int) error
	// SetLinkedNodeSite updates the site of the original on every link pointing at it.
	SetLinkedNodeSite(ctx context.Context, originalID uint64, siteID uint) error
}

type DocumentStore interface {
	// CreateDocument creates a culture row and assigns its ID.
	CreateDocument(ctx context.Context, doc *model.Document) error
	// UpdateDocument saves every column of a culture row.
	UpdateDocument(ctx context.Context, doc *model.Document) error
	// DeleteDocument deletes a culture row by ID.
	DeleteDocument(ctx context.Context, id uint64) error
	// GetDocument retrieves a culture row by ID.
	GetDocument(ctx context.Context, id uint64) (*model.Document, error)
	// GetDocumentByCulture retrieves the culture row of a node.
	GetDocumentByCulture(ctx context.Context, nodeID uint64, culture string) (*model.Document, error)
	// ListDocuments retrieves every culture row of a node ordered by culture.
	ListDocuments(ctx context.Context, nodeID uint64) ([]*model.Document, error)
	// CountDocuments counts the culture rows of a node.
	CountDocuments(ctx context.Context, nodeID uint64) (int64, error)
	// SiblingDocumentNames retrieves the names of parentID's children in one culture except excludeID.
	SiblingDocumentNames(ctx context.Context, parentID uint64, culture string, excludeID uint64) ([]string, error)
	// SetNamePath sets the name path and URL path of a culture row.
	SetNamePath(ctx context.Context, id uint64, namePath string, urlPath string) error
}

type ExtensionStore interface {
	// CreateExtension creates an extension row and assigns its ID.
	CreateExtension(ctx context.Context, ext *model.Extension) error
	// UpdateExtension saves an extension row.
	UpdateExtension(ctx context.Context, ext *model.Extension) error
	// DeleteExtension deletes an extension row by ID.
	DeleteExtension(ctx context.Context, id uint64) error
	// GetExtension retrieves an extension row by ID.
	GetExtension(ctx context.Context, id uint64) (*model.Extension, error)
	// ListExtensions retrieves the extension rows with the given IDs.
	ListExtensions(ctx context.Context, ids []uint64) ([]*model.Extension, error)
}

type ReferenceStore interface {
	// CreateCategory creates a category.
	CreateCategory(ctx context.Context, category *model.Category) error
	// AddDocumentCategory binds a category to a document.
	AddDocumentCategory(ctx context.Context, documentID, categoryID uint64) error
	// ListDocumentCategories retrieves the categories bound to a document.
	ListDocumentCategories(ctx context.Context, documentID uint64) ([]*model.Category, error)
	// RemoveDocumentCategories unbinds the categories from documents.
	RemoveDocumentCategories(ctx context.Context, documentIDs []uint64, categoryIDs []uint64) error
	// DeleteDocumentCategories removes every category binding of documents.
	DeleteDocumentCategories(ctx context.Context, documentIDs []uint64) error
	// CreateTagGroup creates a tag group.
	CreateTagGroup(ctx context.Context, group *model.TagGroup) error
	// GetTagGroup retrieves a tag group by ID.
	GetTagGroup(ctx context.Context, id uint64) (*model.TagGroup, error)
	// FindTagGroup retrieves a tag group by site and name.
	FindTagGroup(ctx context.Context, siteID uint, name string) (*model.TagGroup, error)
	// CreateTag creates a tag.
	CreateTag(ctx context.Context, tag *model.Tag) error
	// AddDocumentTag binds a tag to a document.
	AddDocumentTag(ctx context.Context, documentID, tagID uint64) error
	// ListDocumentTags retrieves the tags bound to a document.
	ListDocumentTags(ctx context.Context, documentID uint64) ([]*model.Tag, error)
	// DeleteDocumentTags removes every tag binding of documents.
	DeleteDocumentTags(ctx context.Context, documentIDs []uint64) error
	// ListVersionHistory retrieves the version history of a document, newest first.
	ListVersionHistory(ctx context.Context, documentID uint64) ([]*model.VersionHistory, error)
	// DeleteVersionHistory removes the version history of documents.
	DeleteVersionHistory(ctx context.Context, documentIDs []uint64) error
}

type EventLogStore interface {
	// CreateEventLog persists an audit record.
	CreateEventLog(ctx context.Context, event *model.EventLog) error
	// ListEventLogs retrieves the newest audit records, optionally for one node.
	ListEventLogs(ctx context.Context, nodeID uint64, limit int) ([]*model.EventLog, error)
	// DeleteEventLogsBefore removes audit records older than t.
	DeleteEventLogsBefore(ctx context.Context, t time.Time) (int64, error)
}

type NodeQueryStore interface {
	// FindNodeIDs retrieves the distinct structural IDs matching the filter.
	FindNodeIDs(ctx context.Context, filter *NodeFilter) ([]uint64, error)
	// FindNodeRows retrieves the structural rows matching the filter joined
	// with their candidate culture rows.
	FindNodeRows(ctx context.Context, filter *NodeFilter) ([]*NodeRow, error)
}
