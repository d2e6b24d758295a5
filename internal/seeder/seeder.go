package seeder

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/assetlend/internal/metrics"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

//go:embed terms.yaml
var defaultTerms []byte

// DefaultTerm is one entry of the default vocabulary.
type DefaultTerm struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Vocabulary maps each taxonomy to its default terms.
type Vocabulary map[model.Taxonomy][]DefaultTerm

// DefaultVocabulary parses the embedded vocabulary.
func DefaultVocabulary() (Vocabulary, error) {
	return ParseVocabulary(defaultTerms)
}

// ParseVocabulary parses a YAML vocabulary and rejects unknown taxonomies.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing vocabulary: %w", err)
	}
	for tax, terms := range v {
		if !tax.Valid() {
			return nil, fmt.Errorf("parsing vocabulary: %w: %q", store.ErrUnknownTaxonomy, tax)
		}
		for _, t := range terms {
			if t.Slug == "" || t.Name == "" {
				return nil, fmt.Errorf("parsing vocabulary: %s term needs slug and name", tax)
			}
		}
	}
	return v, nil
}

// Result reports what a seeding run did.
type Result struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// Seed ensures every term of vocab exists, matching by slug. Existing terms
// are left untouched, so running it again changes nothing.
func Seed(ctx context.Context, db *sql.DB, vocab Vocabulary) (Result, error) {
	var res Result
	for _, tax := range model.Taxonomies {
		for _, t := range vocab[tax] {
			created, err := store.EnsureTerm(ctx, db, tax, t.Slug, t.Name)
			if err != nil {
				return res, err
			}
			if created {
				res.Created++
				metrics.SeededTermsTotal.WithLabelValues(string(tax)).Inc()
			} else {
				res.Existing++
			}
		}
	}
	return res, nil
}

// Installer seeds the default vocabulary when the catalog is activated.
type Installer struct {
	DB  *sql.DB
	Log *zap.Logger
}

func (i *Installer) Name() string { return "vocabulary" }

// Activate seeds the embedded default vocabulary.
func (i *Installer) Activate(ctx context.Context) error {
	_, err := i.Reload(ctx)
	return err
}

// Deactivate keeps every term.
func (i *Installer) Deactivate(context.Context) error { return nil }

// Reload re-runs the seeder with the embedded vocabulary.
func (i *Installer) Reload(ctx context.Context) (Result, error) {
	vocab, err := DefaultVocabulary()
	if err != nil {
		return Result{}, err
	}
	res, err := Seed(ctx, i.DB, vocab)
	if err != nil {
		return res, fmt.Errorf("seeding default terms: %w", err)
	}
	if i.Log != nil {
		i.Log.Info("default terms ensured", zap.Int("created", res.Created), zap.Int("existing", res.Existing))
	}
	return res, nil
}
