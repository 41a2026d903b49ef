package tree

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/doctree/internal/query"
)

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}

func TestQuery_CultureIsolation(t *testing.T) {
	f := newFixture(t)
	f.insert(f.root, "Products")
	news := f.insert(f.root, "News")
	require.NoError(t, news.SetValue(FieldDocumentName, "Nachrichten"))
	require.NoError(t, news.InsertAsNewCultureVersion(f.ctx, "de-DE"))

	tests := []struct {
		name    string
		combine bool
		want    []string
		culture []string
	}{
		{name: "exact culture only", combine: false, want: []string{"Nachrichten"}, culture: []string{"de-DE"}},
		{name: "combined with default", combine: true, want: []string{"Nachrichten", "Products"}, culture: []string{"de-DE", "en-US"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := f.svc.Query().
				OnSite("main").
				Path("/%").
				Culture("de-DE").
				CombineWithDefaultCulture(tt.combine).
				Where("n.level > ?", 0).
				Find(f.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(nodes))

			var cultures []string
			for _, n := range nodes {
				cultures = append(cultures, n.CultureCode())
			}
			assert.Equal(t, tt.culture, cultures)
		})
	}
}

func TestQuery_AllCultures(t *testing.T) {
	f := newFixture(t)
	news := f.insert(f.root, "News")
	require.NoError(t, news.SetValue(FieldDocumentName, "Nachrichten"))
	require.NoError(t, news.InsertAsNewCultureVersion(f.ctx, "de-DE"))

	all, err := f.svc.Query().Path("/News").Culture(query.AllCultures).CombineWithDefaultCulture(false).Find(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	combined, err := f.svc.Query().Path("/News").Culture(query.AllCultures).CombineWithDefaultCulture(true).Find(f.ctx)
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "en-US", combined[0].CultureCode())

	preferred := New(f.store, Settings{PreferredCulture: "de-DE"})
	nodes, err := preferred.Query().Path("/News").CombineWithDefaultCulture(true).Find(f.ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "de-DE", nodes[0].CultureCode())
}

func TestQuery_PathLevelsAndTypes(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(a, "B")
	f.insert(b, "C")
	f.insert(f.root, "D")

	nodes, err := f.svc.Query().Path("/A/%").Culture("en-US").Find(f.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, names(nodes))

	nodes, err = f.svc.Query().Path("/A/%").Culture("en-US").MaxRelativeLevel(1).Find(f.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, names(nodes))

	count, err := f.svc.Query().OnSite("main").Types(pageType).Culture("en-US").Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	top, err := f.svc.Query().Types(pageType).Culture("en-US").OrderBy("n.alias_path DESC").TopN(2).Find(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C"}, names(top))

	_, err = f.svc.Query().Types("doctree.missing").Find(f.ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Query().Path("A").Find(f.ctx)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQuery_FilterDuplicates(t *testing.T) {
	f := newFixture(t)
	products := f.insert(f.root, "Products")
	archive := f.insert(f.root, "Archive")
	_, err := products.InsertAsLink(f.ctx, archive)
	require.NoError(t, err)

	all, err := f.svc.Query().Culture("en-US").Where("n.level > ?", 0).Find(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	unique, err := f.svc.Query().Culture("en-US").Where("n.level > ?", 0).FilterDuplicates(true).Find(f.ctx)
	require.NoError(t, err)
	require.Len(t, unique, 2)
	for _, n := range unique {
		assert.False(t, n.IsLink())
	}

	originals, err := f.svc.Query().Culture("en-US").ExcludeLinks().Where("n.level > ?", 0).Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, originals)
}

func TestQuery_Published(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return now }))
	f.insert(f.root, "Live")
	f.insert(f.root, "Later", FieldDocumentPublishFrom, now.Add(time.Hour))
	f.insert(f.root, "Archived", FieldDocumentIsArchived, true)

	nodes, err := f.svc.Query().Culture("en-US").Where("n.level > ?", 0).Published(true).Find(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Live"}, names(nodes))
}

func TestQuery_ForEachBatch(t *testing.T) {
	settings := DefaultSettings()
	settings.BatchSize = 2
	f := newFixture(t)
	svc := New(f.store, settings)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		f.insert(f.root, name)
	}

	var pages [][]string
	err := svc.Query().Culture("en-US").Where("n.level > ?", 0).ForEachBatch(f.ctx, func(nodes []*Node) error {
		pages = append(pages, names(nodes))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}, {"E"}}, pages)

	stop := errors.New("stop")
	calls := 0
	err = svc.Query().Culture("en-US").ForEachBatch(f.ctx, func(nodes []*Node) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestService_SelectSingle(t *testing.T) {
	f := newFixture(t)
	n := f.insert(f.root, "Products")

	byID, err := f.svc.SelectSingleNodeByID(f.ctx, n.ID(), "en-US", false)
	require.NoError(t, err)
	assert.Equal(t, "/Products", byID.AliasPath())

	byGUID, err := f.svc.SelectSingleNodeByGUID(f.ctx, "main", n.Structural.GUID, "", false)
	require.NoError(t, err)
	assert.Equal(t, n.ID(), byGUID.ID())

	byDoc, err := f.svc.SelectSingleDocument(f.ctx, n.DocumentID())
	require.NoError(t, err)
	assert.Equal(t, n.ID(), byDoc.ID())

	combined, err := f.svc.SelectSingleNode(f.ctx, "main", "/products", "fr-FR", true)
	require.NoError(t, err)
	assert.Equal(t, "en-US", combined.CultureCode())

	_, err = f.svc.SelectSingleNode(f.ctx, "main", "/Missing", "en-US", false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.SelectSingleDocument(f.ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.SelectSingleNode(f.ctx, "main", "/%", "en-US", false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ForEach(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(a, "B")
	f.insert(b, "C")
	archive := f.insert(f.root, "Archive")
	_, err := a.InsertAsLink(f.ctx, archive)
	require.NoError(t, err)
	require.NoError(t, a.SetValue(FieldDocumentName, "A-de"))
	require.NoError(t, a.InsertAsNewCultureVersion(f.ctx, "de-DE"))

	collect := func(fn func(func(*Node) error) error) []string {
		var out []string
		require.NoError(t, fn(func(n *Node) error {
			out = append(out, n.AliasPath()+":"+n.CultureCode())
			return nil
		}))
		return out
	}

	en := f.get("/A", "en-US")
	assert.Equal(t, []string{"/A/B:en-US"}, collect(func(fn func(*Node) error) error {
		return f.svc.ForEachChild(f.ctx, en, fn)
	}))
	assert.ElementsMatch(t, []string{"/A/B:en-US", "/A/B/C:en-US"}, collect(func(fn func(*Node) error) error {
		return f.svc.ForEachDescendant(f.ctx, en, fn)
	}))
	assert.Equal(t, []string{"/A:de-DE", "/A:en-US"}, collect(func(fn func(*Node) error) error {
		return f.svc.ForEachCultureVersion(f.ctx, en, fn)
	}))
	assert.Equal(t, []string{"/Archive/A:en-US"}, collect(func(fn func(*Node) error) error {
		return f.svc.ForEachLink(f.ctx, en, fn)
	}))
}

func TestService_ForEachDescendantUnderscoreAlias(t *testing.T) {
	f := newFixture(t)
	ab := f.insert(f.root, "a_b")
	f.insert(ab, "Inside")
	axb := f.insert(f.root, "aXb")
	f.insert(axb, "Outside")
	require.Equal(t, "/a_b", ab.AliasPath())

	var paths []string
	err := f.svc.ForEachDescendant(f.ctx, ab, func(n *Node) error {
		paths = append(paths, n.AliasPath())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a_b/Inside"}, paths)
}
