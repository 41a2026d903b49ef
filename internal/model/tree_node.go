package model

import "time"

const (
	// RootAliasPath is the fixed alias path of every site's root node.
	RootAliasPath = "/"
)

// TreeNode is the structural partition of a node. It is shared by every
// culture version of the node; links own a TreeNode of their own that points
// at the original through LinkedNodeID.
type TreeNode struct {
	ID               uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	GUID             string  `gorm:"column:guid;type:uuid;not null;index"`
	ParentID         *uint64 `gorm:"column:parent_id;index"`
	SiteID           uint    `gorm:"column:site_id;not null;index:idx_tree_nodes_site_path"`
	ClassID          uint    `gorm:"column:class_id;not null;index"`
	AliasPath        string  `gorm:"column:alias_path;not null;index:idx_tree_nodes_site_path"`
	Alias            string  `gorm:"column:alias;not null;default:''"`
	Name             string  `gorm:"column:name;not null;default:''"`
	Level            int     `gorm:"column:level;not null;default:0"`
	Order            int     `gorm:"column:node_order;not null;default:0"`
	ACLID            uint64  `gorm:"column:acl_id;not null;default:0"`
	IsACLOwner       bool    `gorm:"column:is_acl_owner;not null;default:false"`
	LinkedNodeID     *uint64 `gorm:"column:linked_node_id;index"`
	LinkedNodeSiteID *uint   `gorm:"column:linked_node_site_id"`
	GroupID          *uint64 `gorm:"column:group_id"`
	OwnerID          *uint64 `gorm:"column:owner_id"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (TreeNode) TableName() string {
	return "tree_nodes"
}

// IsLink reports whether the node redirects its content to another node.
func (n *TreeNode) IsLink() bool {
	return n.LinkedNodeID != nil && *n.LinkedNodeID > 0
}

// IsRoot reports whether the node is the root of its site.
func (n *TreeNode) IsRoot() bool {
	return n.ParentID == nil
}

// OriginalID returns the id of the node that owns the culture rows.
func (n *TreeNode) OriginalID() uint64 {
	if n.IsLink() {
		return *n.LinkedNodeID
	}

	return n.ID
}
