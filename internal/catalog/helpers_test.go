package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetlend/internal/db"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *sql.DB
	fields *store.Fields
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	fields := &store.Fields{DB: database}

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		db:     database,
		fields: fields,
		svc:    NewService(database, fields, "https://lend.example.org", nil),
	}

	for tax, terms := range map[model.Taxonomy][]string{
		model.TaxonomyStructure: {"component", "kit"},
		model.TaxonomyType:      {"telescope", "book", "mount"},
		model.TaxonomyState:     {"available", "on-loan"},
		model.TaxonomyLevel:     {"basic", "advanced"},
	} {
		for _, slug := range terms {
			_, err := store.EnsureTerm(f.ctx, database, tax, slug, titleCase(slug))
			require.NoError(t, err)
		}
	}
	return f
}

func titleCase(slug string) string {
	if slug == "" {
		return slug
	}
	return string(slug[0]-'a'+'A') + slug[1:]
}

// item creates an item with terms given as taxonomy → slugs.
func (f *fixture) item(title, body, status string, terms map[model.Taxonomy][]string) *model.Item {
	f.t.Helper()
	item, err := store.CreateItem(f.ctx, f.db, "", title, body, status)
	require.NoError(f.t, err)
	for tax, slugs := range terms {
		require.NoError(f.t, store.SetItemTerms(f.ctx, f.db, item.ID, tax, slugs))
	}
	return item
}

func (f *fixture) field(itemID int64, name string, value string) {
	f.t.Helper()
	require.NoError(f.t, f.fields.SetItemField(f.ctx, itemID, name, json.RawMessage(value)))
}
