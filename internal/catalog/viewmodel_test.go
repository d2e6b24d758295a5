package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

func TestViewModelPublished(t *testing.T) {
	f := newFixture(t)
	item := f.item("Telescope Newton 200mm", "A reflector.\n\nGreat for planets.", model.ItemStatusPublish,
		map[model.Taxonomy][]string{
			model.TaxonomyType:  {"telescope"},
			model.TaxonomyState: {"on-loan"},
		})

	vm, err := f.svc.ViewModel(f.ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, vm)

	assert.Equal(t, item.ID, vm.ID)
	assert.Equal(t, "Telescope Newton 200mm", vm.Title)
	assert.Equal(t, "https://lend.example.org/items/telescope-newton-200mm", vm.Permalink)
	assert.Equal(t, "<p>A reflector.</p>\n<p>Great for planets.</p>", string(vm.Content))
	assert.Equal(t, []string{"Telescope"}, vm.Type)
	assert.Equal(t, []string{"On-loan"}, vm.State)
	assert.NotNil(t, vm.Structure)
	assert.Empty(t, vm.Structure)
	assert.Empty(t, vm.Level)
	assert.Equal(t, "alm-state-on-loan", vm.StateClass())
}

func TestViewModelDefaultThumbnail(t *testing.T) {
	f := newFixture(t)
	item := f.item(`Star "atlas"`, "", model.ItemStatusPublish, nil)

	vm, err := f.svc.ViewModel(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t,
		`<img src="https://lend.example.org/static/img/default-item.svg" alt="Star &#34;atlas&#34;" class="alm-default-thumbnail">`,
		string(vm.Thumbnail))

	require.NoError(t, store.SetItemImage(f.ctx, f.db, item.ID, []byte("jpeg"), "image/jpeg"))
	vm, _ = f.svc.ViewModel(f.ctx, item.ID)
	assert.Contains(t, string(vm.Thumbnail), `src="https://lend.example.org/items/star-atlas/image"`)
	assert.Contains(t, string(vm.Thumbnail), `class="alm-thumbnail"`)
}

func TestViewModelNilForHiddenItems(t *testing.T) {
	f := newFixture(t)

	for _, status := range []string{model.ItemStatusDraft, model.ItemStatusPending, model.ItemStatusPrivate, model.ItemStatusTrash} {
		item := f.item("Hidden "+status, "", status, nil)
		vm, err := f.svc.ViewModel(f.ctx, item.ID)
		require.NoError(t, err)
		assert.Nil(t, vm, status)

		vm, err = f.svc.ViewModelBySlug(f.ctx, item.Slug)
		require.NoError(t, err)
		assert.Nil(t, vm, status)
	}

	vm, err := f.svc.ViewModel(f.ctx, 424242)
	require.NoError(t, err)
	assert.Nil(t, vm)

	vm, err = f.svc.ViewModelBySlug(f.ctx, "")
	require.NoError(t, err)
	assert.Nil(t, vm)
}

func TestFacetIntersection(t *testing.T) {
	f := newFixture(t)
	f.item("Dobson", "", model.ItemStatusPublish, map[model.Taxonomy][]string{
		model.TaxonomyType: {"telescope"}, model.TaxonomyLevel: {"basic"},
	})
	f.item("Refractor", "", model.ItemStatusPublish, map[model.Taxonomy][]string{
		model.TaxonomyType: {"telescope"}, model.TaxonomyLevel: {"advanced"},
	})
	f.item("Atlas", "", model.ItemStatusPublish, map[model.Taxonomy][]string{
		model.TaxonomyType: {"book"}, model.TaxonomyLevel: {"basic"},
	})
	f.item("Draft scope", "", model.ItemStatusDraft, map[model.Taxonomy][]string{
		model.TaxonomyType: {"telescope"}, model.TaxonomyLevel: {"basic"},
	})

	titles := func(fl Filters) []string {
		page, err := f.svc.List(f.ctx, fl)
		require.NoError(t, err)
		out := []string{}
		for _, vm := range page.Items {
			out = append(out, vm.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Atlas", "Dobson", "Refractor"}, titles(Filters{}))
	assert.Equal(t, []string{"Dobson", "Refractor"}, titles(Filters{Type: "telescope"}))
	assert.Equal(t, []string{"Atlas", "Dobson"}, titles(Filters{Level: "basic"}))
	assert.Equal(t, []string{"Dobson"}, titles(Filters{Type: "telescope", Level: "basic"}))
	assert.Empty(t, titles(Filters{Type: "no-such-type"}))
	assert.Equal(t, []string{"Dobson"}, titles(Filters{Search: "dob", Level: "basic"}))
}

func TestFacetOptionsHideEmptyTerms(t *testing.T) {
	f := newFixture(t)
	f.item("Dobson", "", model.ItemStatusPublish, map[model.Taxonomy][]string{model.TaxonomyType: {"telescope"}})
	f.item("Draft atlas", "", model.ItemStatusDraft, map[model.Taxonomy][]string{model.TaxonomyType: {"book"}})

	facets, err := f.svc.FacetOptions(f.ctx)
	require.NoError(t, err)
	require.Len(t, facets[model.TaxonomyType], 1)
	assert.Equal(t, "telescope", facets[model.TaxonomyType][0].Slug)
	assert.Empty(t, facets[model.TaxonomyLevel])

	// Cached until invalidated.
	f.item("Mount", "", model.ItemStatusPublish, map[model.Taxonomy][]string{model.TaxonomyType: {"mount"}})
	facets, _ = f.svc.FacetOptions(f.ctx)
	assert.Len(t, facets[model.TaxonomyType], 1)

	f.svc.InvalidateFacets()
	facets, _ = f.svc.FacetOptions(f.ctx)
	assert.Len(t, facets[model.TaxonomyType], 2)
}

func TestResolveSlugAndDetail(t *testing.T) {
	assert.Equal(t, "a", ResolveSlug("a", "b", "c"))
	assert.Equal(t, "b", ResolveSlug("", "b", "c"))
	assert.Equal(t, "c", ResolveSlug("", "", "c"))
	assert.Equal(t, "", ResolveSlug("", "", ""))

	f := newFixture(t)
	item := f.item("Dobson", "", model.ItemStatusPublish, nil)
	f.field(item.ID, "manufacturer", `"Sky-Watcher"`)

	d, err := f.svc.Detail(f.ctx, "dobson")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, item.ID, d.Item.ID)
	require.Len(t, d.Fields, 1)

	d, err = f.svc.Detail(f.ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, d)
}
