package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetlend/internal/model"
)

// CreateTerm creates a term. An empty slug is derived from the name.
func CreateTerm(ctx context.Context, db *sql.DB, tax model.Taxonomy, slug, name string) (*model.Term, error) {
	if !tax.Valid() {
		return nil, ErrUnknownTaxonomy
	}
	if slug == "" {
		slug = model.Slugify(name)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO terms (taxonomy, slug, name) VALUES (?, ?, ?)`,
		string(tax), slug, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating term: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting term id: %w", err)
	}

	return &model.Term{ID: id, Taxonomy: tax, Slug: slug, Name: name}, nil
}

// EnsureTerm inserts the term unless a term with the same slug already exists
// in the taxonomy. Existing terms are left untouched. It reports whether a row
// was created.
func EnsureTerm(ctx context.Context, db *sql.DB, tax model.Taxonomy, slug, name string) (bool, error) {
	if !tax.Valid() {
		return false, ErrUnknownTaxonomy
	}

	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO terms (taxonomy, slug, name) VALUES (?, ?, ?)`,
		string(tax), slug, name,
	)
	if err != nil {
		return false, fmt.Errorf("ensuring term %s/%s: %w", tax, slug, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensuring term %s/%s: %w", tax, slug, err)
	}
	return n > 0, nil
}

// GetTermBySlug returns a term, or nil if it does not exist.
func GetTermBySlug(ctx context.Context, db *sql.DB, tax model.Taxonomy, slug string) (*model.Term, error) {
	t := &model.Term{}
	var taxonomy string
	err := db.QueryRowContext(ctx,
		`SELECT id, taxonomy, slug, name FROM terms WHERE taxonomy = ? AND slug = ?`,
		string(tax), slug,
	).Scan(&t.ID, &taxonomy, &t.Slug, &t.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting term: %w", err)
	}
	t.Taxonomy = model.Taxonomy(taxonomy)
	return t, nil
}

// ListTerms returns the terms of a taxonomy ordered by name, each with the
// number of published items carrying it. With hideEmpty, terms without
// published items are left out.
func ListTerms(ctx context.Context, db *sql.DB, tax model.Taxonomy, hideEmpty bool) ([]model.Term, error) {
	query := `SELECT id, taxonomy, slug, name, cnt FROM (
	              SELECT t.id, t.taxonomy, t.slug, t.name,
	                     (SELECT COUNT(*) FROM item_terms it JOIN items i ON i.id = it.item_id
	                      WHERE it.term_id = t.id AND i.status = 'publish') AS cnt
	              FROM terms t WHERE t.taxonomy = ?)`
	if hideEmpty {
		query += ` WHERE cnt > 0`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := db.QueryContext(ctx, query, string(tax))
	if err != nil {
		return nil, fmt.Errorf("listing terms: %w", err)
	}
	defer rows.Close()

	var terms []model.Term
	for rows.Next() {
		var t model.Term
		var taxonomy string
		if err := rows.Scan(&t.ID, &taxonomy, &t.Slug, &t.Name, &t.Count); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		t.Taxonomy = model.Taxonomy(taxonomy)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// CountTerms returns the number of terms in a taxonomy.
func CountTerms(ctx context.Context, db *sql.DB, tax model.Taxonomy) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM terms WHERE taxonomy = ?`, string(tax),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting terms: %w", err)
	}
	return n, nil
}

// DeleteTerm removes a term and its item assignments.
func DeleteTerm(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM terms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting term: %w", err)
	}
	return nil
}

// SetItemTerms replaces the item's terms in one taxonomy with the given slugs.
// Every slug must name an existing term.
func SetItemTerms(ctx context.Context, db *sql.DB, itemID int64, tax model.Taxonomy, slugs []string) error {
	if !tax.Valid() {
		return ErrUnknownTaxonomy
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM item_terms WHERE item_id = ?
		 AND term_id IN (SELECT id FROM terms WHERE taxonomy = ?)`,
		itemID, string(tax),
	)
	if err != nil {
		return fmt.Errorf("clearing item terms: %w", err)
	}

	for _, slug := range slugs {
		var termID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM terms WHERE taxonomy = ? AND slug = ?`, string(tax), slug,
		).Scan(&termID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s/%s", ErrUnknownTerm, tax, slug)
		}
		if err != nil {
			return fmt.Errorf("looking up term: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_terms (item_id, term_id) VALUES (?, ?)`, itemID, termID,
		)
		if err != nil {
			return fmt.Errorf("assigning term: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item terms: %w", err)
	}
	return nil
}

// ItemTerms returns the item's terms grouped by taxonomy, each group ordered by name.
func ItemTerms(ctx context.Context, db *sql.DB, itemID int64) (map[model.Taxonomy][]model.Term, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.taxonomy, t.slug, t.name
		 FROM item_terms it JOIN terms t ON t.id = it.term_id
		 WHERE it.item_id = ?
		 ORDER BY t.taxonomy, t.name COLLATE NOCASE, t.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item terms: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Taxonomy][]model.Term)
	for rows.Next() {
		var t model.Term
		var taxonomy string
		if err := rows.Scan(&t.ID, &taxonomy, &t.Slug, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning item term: %w", err)
		}
		t.Taxonomy = model.Taxonomy(taxonomy)
		out[t.Taxonomy] = append(out[t.Taxonomy], t)
	}
	return out, rows.Err()
}

// ItemHasTerm reports whether the item carries the given term.
func ItemHasTerm(ctx context.Context, db *sql.DB, itemID int64, tax model.Taxonomy, slug string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_terms it JOIN terms t ON t.id = it.term_id
		 WHERE it.item_id = ? AND t.taxonomy = ? AND t.slug = ?`,
		itemID, string(tax), slug,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking item term: %w", err)
	}
	return n > 0, nil
}
