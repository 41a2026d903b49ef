package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/doctree/internal/cachekey"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
	"github.com/emrgen/doctree/internal/tester"
)

func TestNode_Insert(t *testing.T) {
	f := newFixture(t)

	n := f.insert(f.root, "Products", "Title", "All products")

	assert.Equal(t, StatusUnchanged, n.Status())
	assert.Equal(t, "/Products", n.AliasPath())
	assert.Equal(t, 1, n.Structural.Level)
	assert.Equal(t, "en-US", n.CultureCode())
	assert.Equal(t, "/Products", n.Culture.NamePath)
	assert.NotEmpty(t, n.Structural.GUID)
	assert.NotNil(t, n.Culture.ForeignKey)
	assert.Empty(t, n.ChangedColumns())

	assert.True(t, f.cache.Contains(cachekey.NodePath("main", "/Products")))
	assert.True(t, f.cache.Contains(cachekey.NodeID(n.ID())))
	assert.True(t, f.cache.Contains(cachekey.NodeType("main", pageType)))
	assert.True(t, f.cache.Contains("nodes|main|doctree.page|all"))

	stored := f.get("/Products", "en-US")
	assert.Equal(t, n.ID(), stored.ID())
	v, ok := stored.GetValue("Title")
	require.True(t, ok)
	assert.Equal(t, "All products", v)
	price, _ := stored.GetValue("price")
	assert.Equal(t, float64(0), price)
}

func TestNode_InsertValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		setup func(n *Node)
	}{
		{name: "missing name", setup: func(n *Node) {}},
		{name: "culture not allowed", setup: func(n *Node) {
			require.NoError(t, n.SetValue(FieldDocumentName, "Produits"))
			n.Culture.Culture = "it-IT"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := f.svc.NewNode(f.ctx, pageType)
			require.NoError(t, err)
			tt.setup(n)

			err = n.Insert(f.ctx, f.root)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, StatusNew, n.Status())
			assert.Zero(t, n.ID())
		})
	}
}

func TestNode_InsertAlias(t *testing.T) {
	f := newFixture(t)

	first := f.insert(f.root, "Summer Sale!")
	second := f.insert(f.root, "Summer Sale!")

	assert.Equal(t, "/Summer-Sale", first.AliasPath())
	assert.Equal(t, "/Summer-Sale-1", second.AliasPath())
	assert.Equal(t, 0, first.Structural.Order)
	assert.Equal(t, 1, second.Structural.Order)
}

func TestNode_DeleteCultureVersion(t *testing.T) {
	f := newFixture(t)
	f.insert(f.root, "Products")

	n := f.get("/Products", "en-US")
	require.NoError(t, n.SetValue(FieldDocumentName, "Produkte"))
	require.NoError(t, n.InsertAsNewCultureVersion(f.ctx, "de-DE"))
	assert.Equal(t, "de-DE", n.CultureCode())
	assert.Equal(t, "/Products", n.AliasPath())

	f.cache.Reset()
	last, err := n.Delete(f.ctx, DeleteOptions{})
	require.NoError(t, err)
	assert.False(t, last)
	assert.Equal(t, StatusWasDeleted, n.Status())
	assert.True(t, f.cache.Contains(cachekey.NodePathCulture("main", "/Products", "de-DE")))

	count, err := f.store.CountDocuments(f.ctx, n.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	en := f.get("/Products", "en-US")
	assert.Equal(t, "Products", en.Name())
	_, err = f.svc.SelectSingleNode(f.ctx, "main", "/Products", "de-DE", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNode_CultureVersionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	shop := f.insert(f.root, "Shop")
	f.insert(f.root, "Products", "Title", "All products")

	de := f.get("/Products", "en-US")
	require.NoError(t, de.SetValue(FieldDocumentName, "Produkte"))
	require.NoError(t, de.SetValue("Title", "Alle Produkte"))
	require.NoError(t, de.InsertAsNewCultureVersion(f.ctx, "de-DE"))

	en := f.get("/Products", "en-US")
	require.NoError(t, en.SetValue("Title", "Every product"))
	require.NoError(t, en.Update(f.ctx))

	de = f.get("/Products", "de-DE")
	title, _ := de.GetValue("Title")
	assert.Equal(t, "Alle Produkte", title)
	assert.Equal(t, "Produkte", de.Name())

	// structure is shared, so a move shows in every culture
	require.NoError(t, en.SetValue(FieldNodeParentID, shop.ID()))
	require.NoError(t, en.Update(f.ctx))

	de = f.get("/Shop/Products", "de-DE")
	assert.Equal(t, "/Shop/Products", de.AliasPath())
	assert.Equal(t, "/Shop/Produkte", de.Culture.NamePath)
	assert.Equal(t, 2, de.Structural.Level)
	title, _ = de.GetValue("Title")
	assert.Equal(t, "Alle Produkte", title)
}

func TestNode_RenameCascades(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	f.insert(a, "C")

	f.cache.Reset()
	require.NoError(t, a.SetValue(FieldDocumentName, "A2"))
	assert.Equal(t, StatusChanged, a.Status())
	assert.Equal(t, []string{FieldDocumentName}, a.ChangedColumns())
	require.NoError(t, a.Update(f.ctx))

	assert.Equal(t, StatusUnchanged, a.Status())
	assert.Equal(t, "/A2", a.AliasPath())
	assert.Equal(t, "A2", a.Structural.Name)

	c := f.get("/A2/C", "en-US")
	assert.Equal(t, "/A2/C", c.Culture.NamePath)

	assert.True(t, f.cache.Contains(cachekey.ChildNodes("main", "/A")))
	assert.True(t, f.cache.Contains(cachekey.ChildNodes("main", "/A2")))
	assert.True(t, f.cache.Contains("node|main|/a/%"))
}

func TestNode_UpdateWithoutChanges(t *testing.T) {
	f := newFixture(t)
	n := f.insert(f.root, "Products")

	f.cache.Reset()
	require.NoError(t, n.Update(f.ctx))
	assert.Equal(t, StatusUnchanged, n.Status())
	assert.Empty(t, f.cache.Keys())
}

// failingStore fails culture row writes inside transactions once armed.
type failingStore struct {
	store.Store
	armed *bool
}

func (s *failingStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(&failingStore{Store: tx, armed: s.armed})
	})
}

func (s *failingStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if *s.armed {
		return errors.New("disk full")
	}
	return s.Store.CreateDocument(ctx, doc)
}

func TestNode_InsertIsTransactional(t *testing.T) {
	armed := false
	base := tester.Store(t)
	f := newFixtureOn(t, &failingStore{Store: base, armed: &armed}, DefaultSettings())
	armed = true

	n, err := f.svc.NewNode(f.ctx, pageType)
	require.NoError(t, err)
	require.NoError(t, n.SetValue(FieldDocumentName, "Products"))

	err = n.Insert(f.ctx, f.root)
	require.Error(t, err)
	assert.Equal(t, StatusNew, n.Status())
	assert.Zero(t, n.ID())

	_, err = base.GetTreeNodeByPath(f.ctx, f.root.SiteID(), "/Products")
	assert.ErrorIs(t, err, store.ErrNotFound)
	count, err := base.CountChildNodes(f.ctx, f.root.ID())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNode_LinkReadsThrough(t *testing.T) {
	f := newFixture(t)
	products := f.insert(f.root, "Products", "Title", "Widget")
	archive := f.insert(f.root, "Archive")

	link, err := products.InsertAsLink(f.ctx, archive)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.True(t, link.IsLink())
	assert.Equal(t, products.ID(), link.OriginalNodeID())
	assert.Equal(t, "/Archive/Products", link.AliasPath())

	count, err := f.store.CountDocuments(f.ctx, link.ID())
	require.NoError(t, err)
	assert.Zero(t, count)

	read := f.get("/Archive/Products", "en-US")
	assert.True(t, read.IsLink())
	assert.Equal(t, "Products", read.Name())
	title, _ := read.GetValue("Title")
	assert.Equal(t, "Widget", title)

	require.NoError(t, products.SetValue("Title", "Gadget"))
	require.NoError(t, products.Update(f.ctx))

	read = f.get("/Archive/Products", "en-US")
	title, _ = read.GetValue("Title")
	assert.Equal(t, "Gadget", title)

	// linking a link links its original
	again, err := read.InsertAsLink(f.ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, products.ID(), *again.Structural.LinkedNodeID)
}

func TestNode_DeleteLastCultureRemovesLinks(t *testing.T) {
	f := newFixture(t)
	products := f.insert(f.root, "Products")
	child := f.insert(products, "Widget")
	archive := f.insert(f.root, "Archive")
	link, err := products.InsertAsLink(f.ctx, archive)
	require.NoError(t, err)

	last, err := products.Delete(f.ctx, DeleteOptions{})
	require.NoError(t, err)
	assert.True(t, last)

	for _, id := range []uint64{products.ID(), child.ID(), link.ID()} {
		_, err = f.store.GetTreeNode(f.ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	_, err = f.store.GetDocument(f.ctx, products.DocumentID())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, []string{"Archive"}, f.childNames(f.root))
}

func TestNode_DeleteKeepChildren(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	f.insert(a, "B")

	last, err := a.Delete(f.ctx, DeleteOptions{KeepChildren: true})
	require.NoError(t, err)
	assert.True(t, last)

	b := f.get("/B", "en-US")
	assert.Equal(t, 1, b.Structural.Level)
	assert.Equal(t, f.root.ID(), *b.Structural.ParentID)
}

func TestNode_DeleteRoot(t *testing.T) {
	f := newFixture(t)

	_, err := f.root.Delete(f.ctx, DeleteOptions{})
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, StatusUnchanged, f.root.Status())
}

func TestNode_WasDeletedIsTerminal(t *testing.T) {
	f := newFixture(t)
	n := f.insert(f.root, "Products")

	_, err := n.Delete(f.ctx, DeleteOptions{})
	require.NoError(t, err)

	assert.ErrorIs(t, n.SetStatus(StatusChanged), ErrConsistency)
	assert.ErrorIs(t, n.SetValue(FieldDocumentName, "Again"), ErrConsistency)
	assert.ErrorIs(t, n.Update(f.ctx), ErrConsistency)
	_, err = n.Delete(f.ctx, DeleteOptions{})
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, StatusWasDeleted, n.Status())
}

func TestNode_GuardCancels(t *testing.T) {
	var seen []EventType
	f := newFixture(t, WithGuard(func(ctx context.Context, e *Event) (bool, string) {
		seen = append(seen, e.Type)
		if e.Type == EventUpdate {
			return false, "frozen"
		}
		return true, ""
	}))
	n := f.insert(f.root, "Products")

	require.NoError(t, n.SetValue(FieldDocumentName, "Goods"))
	require.NoError(t, n.Update(f.ctx))

	assert.Equal(t, "frozen", n.CancelReason())
	assert.Equal(t, StatusChanged, n.Status())
	assert.Equal(t, "Goods", n.Name())
	assert.Equal(t, "Products", f.get("/Products", "en-US").Name())
	assert.Contains(t, seen, EventInsert)
	assert.Contains(t, seen, EventUpdate)
}

func TestNode_MoveToSite(t *testing.T) {
	f := newFixture(t)
	other, err := f.svc.CreateSite(f.ctx, SiteInput{Name: "other", DefaultCulture: "en-US"})
	require.NoError(t, err)
	n := f.insert(f.root, "Products")
	f.insert(n, "Widget")
	guid := n.Structural.GUID

	require.NoError(t, f.svc.MoveToSite(f.ctx, n, other))

	assert.Equal(t, other.SiteID(), n.SiteID())
	assert.Equal(t, "/Products", n.AliasPath())
	assert.NotEqual(t, guid, n.Structural.GUID)

	moved, err := f.svc.SelectSingleNode(f.ctx, "other", "/Products/Widget", "en-US", false)
	require.NoError(t, err)
	assert.Equal(t, other.SiteID(), moved.SiteID())
	assert.Empty(t, f.childNames(f.root))
}

func TestNode_MoveBelowItself(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(a, "B")

	require.NoError(t, a.SetValue(FieldNodeParentID, b.ID()))
	err := a.Update(f.ctx)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "/A", f.get("/A", "en-US").AliasPath())
}

func TestNode_Move(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(f.root, "B")
	c := f.insert(a, "C")
	f.insert(c, "D")

	f.cache.Reset()
	require.NoError(t, c.SetValue(FieldNodeParentID, b.ID()))
	require.NoError(t, c.Update(f.ctx))

	assert.Equal(t, "/B/C", c.AliasPath())
	assert.Equal(t, "/B/C", c.Culture.NamePath)
	d := f.get("/B/C/D", "en-US")
	assert.Equal(t, 3, d.Structural.Level)
	assert.True(t, f.cache.Contains(cachekey.NodeOrderKey))
	assert.True(t, f.cache.Contains(cachekey.ChildNodes("main", "/A/C")))
}

func TestNode_ChangeToLink(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A", "Title", "own")
	b := f.insert(f.root, "B", "Title", "target")
	archive := f.insert(f.root, "Archive")
	toA, err := a.InsertAsLink(f.ctx, archive)
	require.NoError(t, err)

	require.NoError(t, a.ChangeToLink(f.ctx, b.ID()))

	assert.True(t, a.IsLink())
	assert.Equal(t, b.ID(), a.OriginalNodeID())
	assert.Equal(t, "B", a.Name())
	assert.Equal(t, "/A", a.AliasPath())
	title, _ := a.GetValue("Title")
	assert.Equal(t, "target", title)

	count, err := f.store.CountDocuments(f.ctx, a.ID())
	require.NoError(t, err)
	assert.Zero(t, count)

	redirected, err := f.store.GetTreeNode(f.ctx, toA.ID())
	require.NoError(t, err)
	assert.Equal(t, b.ID(), *redirected.LinkedNodeID)
}

func TestNode_ChangeToLinkOtherType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RegisterType(f.ctx, TypeInput{
		Name: "doctree.article",
		Fields: []model.FieldDefinition{
			{Name: "Body", Kind: model.FieldText},
			{Name: "Lead", Kind: model.FieldText},
		},
	})
	require.NoError(t, err)

	article, err := f.svc.NewNode(f.ctx, "doctree.article")
	require.NoError(t, err)
	require.NoError(t, article.SetValue(FieldDocumentName, "News"))
	require.NoError(t, article.SetValue("Body", "article body"))
	require.NoError(t, article.SetValue("Lead", "lead text"))
	require.NoError(t, article.Insert(f.ctx, f.root))

	page := f.insert(f.root, "Page", "Title", "own")
	require.NoError(t, page.ChangeToLink(f.ctx, article.ID()))

	body, ok := page.GetValue("Body")
	require.True(t, ok)
	assert.Equal(t, "article body", body)
	assert.Equal(t, StatusUnchanged, page.Status())

	require.NoError(t, page.SetValue("Body", "edited through the link"))
	require.NoError(t, page.Update(f.ctx))

	original := f.get("/News", "en-US")
	body, _ = original.GetValue("Body")
	assert.Equal(t, "edited through the link", body)
	lead, _ := original.GetValue("Lead")
	assert.Equal(t, "lead text", lead)
	require.NotNil(t, original.Extension)
	assert.Equal(t, article.Extension.ID, original.Extension.ID)
}

func TestNode_ChangeToLinkWithPendingChanges(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(f.root, "B")

	require.NoError(t, a.SetValue(FieldDocumentName, "A2"))
	assert.ErrorIs(t, a.ChangeToLink(f.ctx, b.ID()), ErrConsistency)
	assert.ErrorIs(t, b.ChangeToLink(f.ctx, b.ID()), ErrValidation)
}

func TestNode_Parent(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	c := f.insert(a, "C")

	parent, err := c.Parent(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), parent.ID())

	rootParent, err := f.root.Parent(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, rootParent)
}

func TestService_Submit(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(f.root, "B")
	c := f.insert(f.root, "C")

	require.NoError(t, a.SetValue(FieldDocumentName, "A1"))
	require.NoError(t, b.SetStatus(StatusToBeDeleted))

	require.NoError(t, f.svc.Submit(f.ctx, a, b, c))
	assert.Equal(t, StatusUnchanged, a.Status())
	assert.Equal(t, StatusWasDeleted, b.Status())
	assert.Equal(t, StatusUnchanged, c.Status())
	assert.Equal(t, []string{"A1", "C"}, f.childNames(f.root))

	n, err := f.svc.NewNode(f.ctx, pageType)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Submit(f.ctx, n), ErrValidation)
}
