package seeder

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assetlend/internal/db"
	"github.com/erazemk/assetlend/internal/metrics"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

func TestDefaultVocabulary(t *testing.T) {
	vocab, err := DefaultVocabulary()
	require.NoError(t, err)

	assert.Len(t, vocab[model.TaxonomyStructure], 2)
	assert.Len(t, vocab[model.TaxonomyType], 12)
	assert.Len(t, vocab[model.TaxonomyState], 4)
	assert.Len(t, vocab[model.TaxonomyLevel], 3)
	assert.Equal(t, DefaultTerm{Slug: "optical-tube", Name: "Optical Tube"}, vocab[model.TaxonomyType][3])
}

func TestParseVocabularyRejectsUnknownTaxonomy(t *testing.T) {
	_, err := ParseVocabulary([]byte("color:\n  - {slug: red, name: Red}\n"))
	assert.ErrorIs(t, err, store.ErrUnknownTaxonomy)

	_, err = ParseVocabulary([]byte("type:\n  - {slug: red}\n"))
	assert.Error(t, err)
}

func TestSeedCreatesExactDefaults(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	vocab, _ := DefaultVocabulary()

	before := testutil.ToFloat64(metrics.SeededTermsTotal.WithLabelValues("structure"))

	res, err := Seed(ctx, database, vocab)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 21, Existing: 0}, res)

	structure, err := store.ListTerms(ctx, database, model.TaxonomyStructure, false)
	require.NoError(t, err)
	slugs := []string{}
	for _, term := range structure {
		slugs = append(slugs, term.Slug)
	}
	assert.ElementsMatch(t, []string{"component", "kit"}, slugs)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.SeededTermsTotal.WithLabelValues("structure")))
}

func TestSeedIsIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	vocab, _ := DefaultVocabulary()

	_, err := Seed(ctx, database, vocab)
	require.NoError(t, err)
	counts := map[model.Taxonomy]int{}
	for _, tax := range model.Taxonomies {
		counts[tax], _ = store.CountTerms(ctx, database, tax)
	}

	res, err := Seed(ctx, database, vocab)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 0, Existing: 21}, res)
	for _, tax := range model.Taxonomies {
		n, _ := store.CountTerms(ctx, database, tax)
		assert.Equal(t, counts[tax], n, tax)
	}
}

func TestSeedKeepsExistingTerms(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := store.CreateTerm(ctx, database, model.TaxonomyState, "available", "Ready to lend")
	require.NoError(t, err)

	installer := &Installer{DB: database}
	require.NoError(t, installer.Activate(ctx))

	term, err := store.GetTermBySlug(ctx, database, model.TaxonomyState, "available")
	require.NoError(t, err)
	assert.Equal(t, "Ready to lend", term.Name)

	n, _ := store.CountTerms(ctx, database, model.TaxonomyState)
	assert.Equal(t, 4, n)

	require.NoError(t, installer.Deactivate(ctx))
	n, _ = store.CountTerms(ctx, database, model.TaxonomyState)
	assert.Equal(t, 4, n, "deactivation keeps terms")
}
