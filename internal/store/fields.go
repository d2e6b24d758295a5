package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/assetlend/internal/model"
)

// Fields is the SQLite-backed custom field store. Values are kept as JSON
// documents keyed by (item, field name).
type Fields struct {
	DB *sql.DB
}

// ItemFields returns every stored field value of an item.
func (f *Fields) ItemFields(ctx context.Context, itemID int64) (map[string]json.RawMessage, error) {
	rows, err := f.DB.QueryContext(ctx,
		`SELECT name, value FROM item_fields WHERE item_id = ?`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning item field: %w", err)
		}
		out[name] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// SetItemField stores a field value. A nil or JSON null value removes the field.
func (f *Fields) SetItemField(ctx context.Context, itemID int64, name string, value json.RawMessage) error {
	if len(value) == 0 || string(value) == "null" {
		_, err := f.DB.ExecContext(ctx,
			`DELETE FROM item_fields WHERE item_id = ? AND name = ?`, itemID, name,
		)
		if err != nil {
			return fmt.Errorf("clearing item field: %w", err)
		}
		return nil
	}

	if !json.Valid(value) {
		return fmt.Errorf("setting item field %s: invalid JSON value", name)
	}

	_, err := f.DB.ExecContext(ctx,
		`INSERT INTO item_fields (item_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (item_id, name) DO UPDATE SET value = excluded.value`,
		itemID, name, string(value),
	)
	if err != nil {
		return fmt.Errorf("setting item field: %w", err)
	}
	return nil
}

// FindReferencing returns published items whose field holds itemID, either as
// a single id or inside a JSON array, ordered by title. Ids may be numbers or
// numeric strings. The item itself is never returned.
func (f *Fields) FindReferencing(ctx context.Context, field string, itemID int64, limit int) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i
	          JOIN item_fields f ON f.item_id = i.id AND f.name = ?
	          WHERE i.status = 'publish' AND i.id != ?
	            AND json_valid(f.value)
	            AND (
	              (json_type(f.value) = 'array'
	                AND EXISTS (SELECT 1 FROM json_each(f.value) j WHERE CAST(j.value AS INTEGER) = ?))
	              OR (json_type(f.value) IN ('integer', 'text')
	                AND CAST(json_extract(f.value, '$') AS INTEGER) = ?)
	            )
	          ORDER BY i.title COLLATE NOCASE, i.id`
	args := []any{field, itemID, itemID, itemID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := f.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding referencing items: %w", err)
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
