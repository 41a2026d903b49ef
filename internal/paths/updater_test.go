package paths

import (
	"context"
	"testing"

	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
	"github.com/emrgen/doctree/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createNode(t *testing.T, s store.Store, parent *model.TreeNode, alias string, names map[string]string) *model.TreeNode {
	t.Helper()
	ctx := context.Background()

	node := &model.TreeNode{GUID: uuid.NewString(), SiteID: 1, ClassID: 1, Alias: alias, Name: alias, AliasPath: "/"}
	if parent != nil {
		node.ParentID = &parent.ID
		node.AliasPath = Join(parent.AliasPath, alias)
		node.Level = parent.Level + 1
	}
	require.NoError(t, s.CreateTreeNode(ctx, node))

	for culture, name := range names {
		doc := &model.Document{GUID: uuid.NewString(), NodeID: node.ID, Culture: culture, Name: name, NamePath: "/" + name}
		require.NoError(t, s.CreateDocument(ctx, doc))
	}

	return node
}

func TestUpdater_ComputeRoot(t *testing.T) {
	u := NewUpdater(tester.Store(t), Options{})
	node := &model.TreeNode{Alias: "ignored", Level: 3}
	doc := &model.Document{Culture: "en-US"}

	require.NoError(t, u.Compute(context.Background(), node, doc, nil, 0))
	assert.Equal(t, "/", node.AliasPath)
	assert.Equal(t, "", node.Alias)
	assert.Equal(t, 0, node.Level)
	assert.Equal(t, "/", doc.NamePath)
}

func TestUpdater_ComputeChild(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()
	root := createNode(t, s, nil, "", map[string]string{"en-US": ""})
	createNode(t, s, root, "Products", map[string]string{"en-US": "Products"})
	rootDocs, err := s.ListDocuments(ctx, root.ID)
	require.NoError(t, err)
	rootDocs[0].NamePath = "/"

	u := NewUpdater(s, Options{CheckUniqueAliases: true, CheckUniqueNames: true})
	node := &model.TreeNode{Name: "Products"}
	doc := &model.Document{Culture: "en-US", Name: "Products"}
	parent := &Parent{Node: root, Documents: rootDocs, DefaultCulture: "en-US"}

	require.NoError(t, u.Compute(ctx, node, doc, parent, 0))
	assert.Equal(t, "Products-1", node.Alias)
	assert.Equal(t, "/Products-1", node.AliasPath)
	assert.Equal(t, 1, node.Level)
	assert.Equal(t, "Products (1)", doc.Name)
	assert.Equal(t, "/Products (1)", doc.NamePath)
}

func TestUpdater_ComputeEmptyAlias(t *testing.T) {
	s := tester.Store(t)
	root := createNode(t, s, nil, "", nil)
	u := NewUpdater(s, Options{})

	err := u.Compute(context.Background(), &model.TreeNode{Name: "???"}, nil, &Parent{Node: root}, 0)
	assert.Error(t, err)
}

func TestUpdater_Cascade(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()

	root := createNode(t, s, nil, "", nil)
	a := createNode(t, s, root, "A", map[string]string{"en-US": "A", "de-DE": "A-de"})
	c := createNode(t, s, a, "C", map[string]string{"en-US": "C", "de-DE": "C-de"})
	d := createNode(t, s, c, "D", map[string]string{"en-US": "D"})

	// rename A in place, descendants still carry the old prefix
	a.Alias = "A2"
	a.AliasPath = "/A2"
	require.NoError(t, s.UpdateTreeNode(ctx, a))
	docs, err := s.ListDocuments(ctx, a.ID)
	require.NoError(t, err)
	for _, doc := range docs {
		doc.Name = doc.Name + "2"
		doc.NamePath = "/" + doc.Name
		require.NoError(t, s.UpdateDocument(ctx, doc))
	}

	u := NewUpdater(s, Options{BatchSize: 1})
	n, err := u.Cascade(ctx, a, "en-US", false)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	got, err := s.GetTreeNode(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "/A2/C", got.AliasPath)
	assert.Equal(t, 2, got.Level)

	got, err = s.GetTreeNode(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "/A2/C/D", got.AliasPath)

	cde, err := s.GetDocumentByCulture(ctx, c.ID, "de-DE")
	require.NoError(t, err)
	assert.Equal(t, "/A-de2/C-de", cde.NamePath)

	// D has no German version, its English name path follows the English chain
	den, err := s.GetDocumentByCulture(ctx, d.ID, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "/A2/C/D", den.NamePath)

	// a second cascade finds nothing to rewrite
	n, err = u.Cascade(ctx, a, "en-US", false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpdater_CascadeSelfAfterMove(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()

	root := createNode(t, s, nil, "", nil)
	a := createNode(t, s, root, "A", map[string]string{"en-US": "A"})
	b := createNode(t, s, root, "B", map[string]string{"en-US": "B"})
	child := createNode(t, s, a, "X", map[string]string{"en-US": "X"})

	child.ParentID = &b.ID
	require.NoError(t, s.UpdateTreeNode(ctx, child))

	u := NewUpdater(s, Options{})
	_, err := u.Cascade(ctx, child, "en-US", true)
	require.NoError(t, err)

	got, err := s.GetTreeNode(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "/B/X", got.AliasPath)

	doc, err := s.GetDocumentByCulture(ctx, child.ID, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "/B/X", doc.NamePath)
}
