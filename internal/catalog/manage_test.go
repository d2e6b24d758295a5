package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

func TestCreateItemWithTermsAndFields(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.CreateItem(f.ctx, ItemInput{
		Title:  "Dobson 8\"",
		Body:   "Large aperture.",
		Status: model.ItemStatusPublish,
		Terms:  map[model.Taxonomy][]string{model.TaxonomyType: {"telescope"}},
		Fields: map[string]json.RawMessage{"manufacturer": json.RawMessage(`"Sky-Watcher"`)},
	})
	require.NoError(t, err)
	assert.Equal(t, "dobson-8", item.Slug)

	state, err := f.svc.EditState(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"telescope"}, state.Terms[model.TaxonomyType])
	assert.Equal(t, []string{}, state.Terms[model.TaxonomyLevel])
	assert.JSONEq(t, `"Sky-Watcher"`, string(state.Fields["manufacturer"]))
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]ItemInput{
		"no title":       {Title: "  "},
		"bad status":     {Title: "x", Status: "archived"},
		"bad taxonomy":   {Title: "x", Terms: map[model.Taxonomy][]string{"color": {"red"}}},
		"unknown term":   {Title: "x", Terms: map[model.Taxonomy][]string{model.TaxonomyType: {"rocket"}}},
		"unknown field":  {Title: "x", Fields: map[string]json.RawMessage{"colour": json.RawMessage(`"red"`)}},
		"computed field": {Title: "x", Fields: map[string]json.RawMessage{FieldKit: json.RawMessage(`[1]`)}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateItem(f.ctx, in)
			assert.True(t, errors.Is(err, ErrInvalidItem), "got %v", err)
		})
	}
}

func TestUpdateItemMergesInput(t *testing.T) {
	f := newFixture(t)
	item := f.item("Binocolo 10x50", "Wide field.", model.ItemStatusDraft,
		map[model.Taxonomy][]string{
			model.TaxonomyType:  {"telescope"},
			model.TaxonomyState: {"available"},
		})
	f.field(item.ID, "location", `"Shelf A"`)

	updated, err := f.svc.UpdateItem(f.ctx, item.ID, ItemInput{
		Status: model.ItemStatusPublish,
		Terms:  map[model.Taxonomy][]string{model.TaxonomyState: {"on-loan"}},
		Fields: map[string]json.RawMessage{"location": json.RawMessage(`null`)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Binocolo 10x50", updated.Title)
	assert.Equal(t, "binocolo-10x50", updated.Slug)
	assert.Equal(t, "Wide field.", updated.Body)
	assert.Equal(t, model.ItemStatusPublish, updated.Status)

	state, err := f.svc.EditState(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"telescope"}, state.Terms[model.TaxonomyType])
	assert.Equal(t, []string{"on-loan"}, state.Terms[model.TaxonomyState])
	assert.NotContains(t, state.Fields, "location")

	missing, err := f.svc.UpdateItem(f.ctx, 9999, ItemInput{Title: "x"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFieldsRejectedWithoutFieldStore(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, nil, "", nil)

	_, err := svc.CreateItem(f.ctx, ItemInput{
		Title:  "Filter",
		Fields: map[string]json.RawMessage{"model": json.RawMessage(`"UHC"`)},
	})
	assert.True(t, errors.Is(err, ErrFieldsDisabled))

	state, err := svc.EditState(f.ctx, f.item("Filter", "", "", nil).ID)
	require.NoError(t, err)
	assert.Empty(t, state.Fields)
}

func TestTrashItemHidesFromViewModel(t *testing.T) {
	f := newFixture(t)
	item := f.item("Star atlas", "", model.ItemStatusPublish, nil)

	require.NoError(t, f.svc.TrashItem(f.ctx, item.ID))

	vm, err := f.svc.ViewModel(f.ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, vm)
}

// failingFields reads like the field store but refuses every write.
type failingFields struct {
	*store.Fields
}

func (failingFields) SetItemField(context.Context, int64, string, json.RawMessage) error {
	return errors.New("disk full")
}

func TestCreateItemRemovesRowWhenApplyFails(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, failingFields{f.fields}, "", nil)

	_, err := svc.CreateItem(f.ctx, ItemInput{
		Title:  "Broken mount",
		Status: model.ItemStatusPublish,
		Terms:  map[model.Taxonomy][]string{model.TaxonomyState: {"available"}},
		Fields: map[string]json.RawMessage{"manufacturer": json.RawMessage(`"Acme"`)},
	})
	require.Error(t, err)

	item, err := store.GetItemBySlug(f.ctx, f.db, "broken-mount")
	require.NoError(t, err)
	assert.Nil(t, item)

	page, err := svc.List(f.ctx, Filters{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
