package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/assetlend/internal/model"
)

const itemColumns = `i.id, i.slug, i.title, i.body, i.status, i.image_mime, i.created_at, i.updated_at`

// Sort keys accepted by ItemQuery.OrderBy.
const (
	OrderByTitle    = "title"
	OrderByDate     = "date"
	OrderByModified = "modified"
	OrderByID       = "id"
)

var orderColumns = map[string]string{
	OrderByTitle:    "i.title COLLATE NOCASE",
	OrderByDate:     "i.created_at",
	OrderByModified: "i.updated_at",
	OrderByID:       "i.id",
}

// TermFilter restricts a query to items carrying the term slug in taxonomy.
type TermFilter struct {
	Taxonomy model.Taxonomy
	Slug     string
}

// ItemQuery describes a search over items. Term filters are combined with AND.
type ItemQuery struct {
	Search  string
	Terms   []TermFilter
	Status  string // empty matches every status
	OrderBy string
	Order   string // ASC or DESC
	Limit   int    // <= 0 means unbounded
}

// CreateItem creates a new item. An empty slug is derived from the title;
// the slug is made unique by appending -2, -3, ...
func CreateItem(ctx context.Context, db *sql.DB, slug, title, body, status string) (*model.Item, error) {
	if status == "" {
		status = model.ItemStatusDraft
	}
	if !model.ValidItemStatus(status) {
		return nil, ErrInvalidStatus
	}

	slug, err := uniqueSlug(ctx, db, slug, title, 0)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (slug, title, body, status) VALUES (?, ?, ?, ?)`,
		slug, title, body, status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemBySlug returns an item by slug, or nil if it does not exist.
func GetItemBySlug(ctx context.Context, db *sql.DB, slug string) (*model.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.slug = ?`, slug)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by slug: %w", err)
	}
	return item, nil
}

// ListItems runs q and returns the matching items.
func ListItems(ctx context.Context, db *sql.DB, q ItemQuery) ([]model.Item, error) {
	var (
		where []string
		args  []any
	)

	if q.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, q.Status)
	}

	// Every whitespace-separated token must appear in the title or the body.
	for _, tok := range strings.Fields(q.Search) {
		pattern := "%" + escapeLike(tok) + "%"
		where = append(where, `(i.title LIKE ? ESCAPE '\' OR i.body LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	for _, tf := range q.Terms {
		where = append(where,
			`EXISTS (SELECT 1 FROM item_terms it JOIN terms t ON t.id = it.term_id
			         WHERE it.item_id = i.id AND t.taxonomy = ? AND t.slug = ?)`)
		args = append(args, string(tf.Taxonomy), tf.Slug)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + itemColumns + ` FROM items i`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	col, ok := orderColumns[q.OrderBy]
	if !ok {
		col = orderColumns[OrderByTitle]
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "DESC") {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, i.id ASC", col, dir)

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's content. A changed slug is re-checked for uniqueness.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, slug, title, body, status string) error {
	if !model.ValidItemStatus(status) {
		return ErrInvalidStatus
	}

	slug, err := uniqueSlug(ctx, db, slug, title, id)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET slug = ?, title = ?, body = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		slug, title, body, status, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// TrashItem moves an item to the trash. Trashed items keep their terms and fields.
func TrashItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET status = 'trash', updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("trashing item: %w", err)
	}
	return nil
}

// DeleteItem removes an item row for good, with its terms and fields.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var imageMime sql.NullString
	err := s.Scan(&item.ID, &item.Slug, &item.Title, &item.Body, &item.Status, &imageMime, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.ImageMime = imageMime.String
	return item, nil
}

// uniqueSlug derives a slug from want (or title when want is empty) that no
// item other than excludeID uses.
func uniqueSlug(ctx context.Context, db *sql.DB, want, title string, excludeID int64) (string, error) {
	base := model.Slugify(want)
	if base == "" {
		base = model.Slugify(title)
	}
	if base == "" {
		base = "item"
	}

	candidate := base
	for n := 2; ; n++ {
		var id int64
		err := db.QueryRowContext(ctx, `SELECT id FROM items WHERE slug = ?`, candidate).Scan(&id)
		if err == sql.ErrNoRows || (err == nil && id == excludeID) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
