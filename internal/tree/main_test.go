package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emrgen/doctree/internal/cache"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
	"github.com/emrgen/doctree/internal/tester"
)

const pageType = "doctree.page"

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	store store.Store
	svc   *Service
	cache *cache.Memory
	root  *Node
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db := tester.Setup(t)
	f := newFixtureOn(t, store.NewGormStore(db), DefaultSettings(), opts...)
	f.db = db
	return f
}

func newFixtureOn(t *testing.T, s store.Store, settings Settings, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := cache.NewMemory()

	svc := New(s, settings, append([]Option{WithCache(mem)}, opts...)...)
	_, err := svc.RegisterType(ctx, TypeInput{
		Name: pageType,
		Fields: []model.FieldDefinition{
			{Name: "Title", Kind: model.FieldText},
			{Name: "Price", Kind: model.FieldDecimal, Default: 0},
		},
	})
	require.NoError(t, err)

	root, err := svc.CreateSite(ctx, SiteInput{Name: "main", DefaultCulture: "en-US", Cultures: []string{"de-DE", "fr-FR"}})
	require.NoError(t, err)

	return &fixture{t: t, ctx: ctx, store: s, svc: svc, cache: mem, root: root}
}

func (f *fixture) insert(parent *Node, name string, values ...any) *Node {
	f.t.Helper()

	n, err := f.svc.NewNode(f.ctx, pageType)
	require.NoError(f.t, err)
	require.NoError(f.t, n.SetValue(FieldDocumentName, name))
	for i := 0; i+1 < len(values); i += 2 {
		require.NoError(f.t, n.SetValue(values[i].(string), values[i+1]))
	}
	require.NoError(f.t, n.Insert(f.ctx, parent))

	return n
}

func (f *fixture) get(path, culture string) *Node {
	f.t.Helper()

	n, err := f.svc.SelectSingleNode(f.ctx, "main", path, culture, false)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) childNames(parent *Node) []string {
	f.t.Helper()

	children, err := f.store.ListChildNodes(f.ctx, parent.ID())
	require.NoError(f.t, err)
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	return names
}
