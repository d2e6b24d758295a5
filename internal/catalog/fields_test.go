package catalog

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetlend/internal/model"
)

func fieldNames(fields []Field) []string {
	names := []string{}
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

func TestCustomFieldsOrderAndSuppression(t *testing.T) {
	f := newFixture(t)
	item := f.item("Dobson", "", model.ItemStatusPublish, nil)

	// Written out of display order, with blanks and an unknown field.
	f.field(item.ID, "notes", `"Collimate before use"`)
	f.field(item.ID, "cost", `350`)
	f.field(item.ID, "manufacturer", `"Sky-Watcher"`)
	f.field(item.ID, "model", `""`)
	f.field(item.ID, "components", `[]`)
	f.field(item.ID, "serial_number", `null`)
	f.field(item.ID, "internal_rating", `"5 stars"`)
	f.field(item.ID, "user_manual", `{"url":"https://cdn.example.org/m.pdf","filename":"m.pdf","mime":"application/pdf"}`)

	fields, err := f.svc.CustomFields(f.ctx, item.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"manufacturer", "cost", "user_manual", "notes"}, fieldNames(fields))
	assert.Equal(t, Field{Name: "manufacturer", Label: "Manufacturer", Type: FieldText, Value: "Sky-Watcher"}, fields[0])
	assert.Equal(t, json.Number("350"), fields[1].Value)
	assert.Equal(t, FileRef{URL: "https://cdn.example.org/m.pdf", Filename: "m.pdf", MIME: "application/pdf"}, fields[2].Value)
}

func TestCustomFieldsNeverIncludeUnknownOrEmpty(t *testing.T) {
	f := newFixture(t)
	item := f.item("Anything", "", model.ItemStatusPublish, nil)

	for _, v := range []string{`""`, `[]`, `null`} {
		for _, def := range Schema {
			f.field(item.ID, def.Name, v)
		}
		f.field(item.ID, "legacy_code", `"X1"`)

		fields, err := f.svc.CustomFields(f.ctx, item.ID)
		require.NoError(t, err)
		assert.Empty(t, fields, "value %s", v)
	}
}

func TestCustomFieldsDisabledStore(t *testing.T) {
	f := newFixture(t)
	item := f.item("Dobson", "", model.ItemStatusPublish, nil)
	f.field(item.ID, "manufacturer", `"Sky-Watcher"`)

	f.svc.Fields = nil
	fields, err := f.svc.CustomFields(f.ctx, item.ID)
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestCustomFieldsRelationships(t *testing.T) {
	f := newFixture(t)
	eyepiece := f.item("Eyepiece 25mm", "", model.ItemStatusPublish,
		map[model.Taxonomy][]string{model.TaxonomyStructure: {"component"}})
	hidden := f.item("Old finder", "", model.ItemStatusDraft, nil)
	kit := f.item("Beginner kit", "", model.ItemStatusPublish,
		map[model.Taxonomy][]string{model.TaxonomyStructure: {"kit"}})
	f.item("Second kit", "", model.ItemStatusPublish, nil)

	id := strconv.FormatInt(eyepiece.ID, 10)
	f.field(kit.ID, "components", `["`+id+`", `+strconv.FormatInt(hidden.ID, 10)+`]`)

	// The kit lists only its published components.
	fields, err := f.svc.CustomFields(f.ctx, kit.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"components"}, fieldNames(fields))
	assert.Equal(t, []ItemRef{{
		ID:        eyepiece.ID,
		Title:     "Eyepiece 25mm",
		Permalink: "https://lend.example.org/items/eyepiece-25mm",
	}}, fields[0].Value)

	// The component gets the synthetic kit field.
	fields, err = f.svc.CustomFields(f.ctx, eyepiece.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"kit"}, fieldNames(fields))
	assert.Equal(t, "Membership kit", fields[0].Label)
	assert.Equal(t, FieldPostObject, fields[0].Type)
	assert.Equal(t, []ItemRef{{ID: kit.ID, Title: "Beginner kit", Permalink: "https://lend.example.org/items/beginner-kit"}}, fields[0].Value)
}

func TestKitFieldForSingleComponent(t *testing.T) {
	f := newFixture(t)
	part := f.item("Eyepiece", "", model.ItemStatusPublish,
		map[model.Taxonomy][]string{model.TaxonomyStructure: {"component"}})
	kit := f.item("Solar kit", "", model.ItemStatusPublish,
		map[model.Taxonomy][]string{model.TaxonomyStructure: {"kit"}})
	f.field(kit.ID, "components", strconv.FormatInt(part.ID, 10))

	fields, err := f.svc.CustomFields(f.ctx, kit.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"components"}, fieldNames(fields))
	assert.Equal(t, []ItemRef{{ID: part.ID, Title: "Eyepiece", Permalink: "https://lend.example.org/items/eyepiece"}}, fields[0].Value)

	fields, err = f.svc.CustomFields(f.ctx, part.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"kit"}, fieldNames(fields))
	assert.Equal(t, []ItemRef{{ID: kit.ID, Title: "Solar kit", Permalink: "https://lend.example.org/items/solar-kit"}}, fields[0].Value)
}

func TestKitLookupCappedToOneParent(t *testing.T) {
	f := newFixture(t)
	part := f.item("Finder", "", model.ItemStatusPublish,
		map[model.Taxonomy][]string{model.TaxonomyStructure: {"component"}})
	ref := `[` + strconv.FormatInt(part.ID, 10) + `]`

	for _, title := range []string{"Kit B", "Kit A", "Kit C"} {
		kit := f.item(title, "", model.ItemStatusPublish, nil)
		f.field(kit.ID, "components", ref)
	}

	fields, err := f.svc.CustomFields(f.ctx, part.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	refs := fields[0].Value.([]ItemRef)
	require.Len(t, refs, 1)
	assert.Equal(t, "Kit A", refs[0].Title)
}

func TestKitFieldOnlyForComponents(t *testing.T) {
	f := newFixture(t)
	part := f.item("Finder", "", model.ItemStatusPublish, nil)
	kit := f.item("Kit", "", model.ItemStatusPublish, nil)
	f.field(kit.ID, "components", `[`+strconv.FormatInt(part.ID, 10)+`]`)

	fields, err := f.svc.CustomFields(f.ctx, part.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestLookupField(t *testing.T) {
	def, ok := LookupField("purchase_date")
	assert.True(t, ok)
	assert.Equal(t, FieldDate, def.Type)

	_, ok = LookupField("kit")
	assert.False(t, ok, "kit is synthetic and cannot be stored")
}
