// Package cachekey computes the dependency keys that must be touched when a
// node changes. The mapping is pure: the same input always yields the same
// ordered list of keys.
package cachekey

import (
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// NodeOrderKey is touched whenever any sibling order changes.
	NodeOrderKey = "nodeorder"
	separator    = "|"
)

// Info is the node state the keys are derived from.
type Info struct {
	SiteName     string
	AliasPath    string
	Culture      string
	ClassName    string
	NodeGUID     string
	NodeID       uint64
	LinkedNodeID uint64
	DocumentID   uint64
	GroupID      uint64
}

func key(parts ...string) string {
	return strings.ToLower(strings.Join(parts, separator))
}

func id(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// NodePath is the key of the node at path.
func NodePath(site, path string) string {
	return key("node", site, path)
}

// NodePathCulture is the key of one culture version of the node at path.
func NodePathCulture(site, path, culture string) string {
	return key("node", site, path, culture)
}

// ChildNodes is the key of listings of the nodes below path.
func ChildNodes(site, path string) string {
	return key("node", site, childPattern(path))
}

// NodeID is the key of a node by its structural id.
func NodeID(nodeID uint64) string {
	return key("nodeid", id(nodeID))
}

// DocumentID is the key of one culture version by its id.
func DocumentID(documentID uint64) string {
	return key("documentid", id(documentID))
}

// DocumentAttachments is the key of a culture version's attachment listings.
func DocumentAttachments(documentID uint64) string {
	return key("documentid", id(documentID), "attachments")
}

// NodeType is the key of every node of a document type on a site.
func NodeType(site, className string) string {
	return key("nodes", site, className, "all")
}

// NodeGUID is the key of a node by its GUID.
func NodeGUID(site, guid string) string {
	return key("nodeguid", site, guid)
}

// NodeGroup is the key of the nodes owned by a group.
func NodeGroup(groupID uint64) string {
	return key("nodegroup", id(groupID))
}

func childPattern(path string) string {
	return strings.TrimSuffix(path, "/") + "/%"
}

// Ancestors returns path and every ancestor path of it, root first.
func Ancestors(path string) []string {
	if path == "" || path == "/" {
		return []string{"/"}
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	out := make([]string, 0, len(segments)+1)
	out = append(out, "/")
	current := ""
	for _, s := range segments {
		current += "/" + s
		out = append(out, current)
	}

	return out
}

// ForNode builds the keys to touch after the node described by info changed.
func ForNode(info Info) []string {
	keys := newKeyList()

	for _, p := range Ancestors(info.AliasPath) {
		keys.add(NodePath(info.SiteName, p))
		if info.Culture != "" {
			keys.add(NodePathCulture(info.SiteName, p, info.Culture))
		}
	}
	keys.add(ChildNodes(info.SiteName, info.AliasPath))

	if info.NodeID > 0 {
		keys.add(NodeID(info.NodeID))
	}
	if info.LinkedNodeID > 0 {
		keys.add(NodeID(info.LinkedNodeID))
	}
	if info.DocumentID > 0 {
		keys.add(DocumentID(info.DocumentID))
		keys.add(DocumentAttachments(info.DocumentID))
	}
	if info.ClassName != "" {
		keys.add(NodeType(info.SiteName, info.ClassName))
	}
	if info.NodeGUID != "" {
		keys.add(NodeGUID(info.SiteName, info.NodeGUID))
	}
	if info.GroupID > 0 {
		keys.add(NodeGroup(info.GroupID))
	}

	return keys.list
}

// ForOrderChange builds the keys to touch after the order of the children
// of parentPath changed.
func ForOrderChange(site, parentPath string) []string {
	return []string{ChildNodes(site, parentPath), NodeOrderKey}
}

// Merge concatenates key lists dropping duplicates, keeping first occurrence order.
func Merge(lists ...[]string) []string {
	keys := newKeyList()
	for _, l := range lists {
		for _, k := range l {
			keys.add(k)
		}
	}

	return keys.list
}

type keyList struct {
	seen mapset.Set[string]
	list []string
}

func newKeyList() *keyList {
	return &keyList{seen: mapset.NewThreadUnsafeSet[string]()}
}

func (k *keyList) add(v string) {
	if k.seen.Add(v) {
		k.list = append(k.list, v)
	}
}
