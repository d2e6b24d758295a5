package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

var (
	// ErrInvalidItem wraps every validation failure of an ItemInput.
	ErrInvalidItem = errors.New("invalid item")
	// ErrFieldsDisabled is returned when writing fields without a writable field store.
	ErrFieldsDisabled = errors.New("custom fields are disabled")
)

// FieldWriter stores custom field values. store.Fields implements it.
type FieldWriter interface {
	SetItemField(ctx context.Context, itemID int64, name string, value json.RawMessage) error
}

// ItemInput is the editable state of an item. On update, empty strings keep
// the current value, only listed taxonomies are replaced and only listed
// fields are written; a null field value removes the field.
type ItemInput struct {
	Title  string                      `json:"title"`
	Slug   string                      `json:"slug"`
	Body   string                      `json:"body"`
	Status string                      `json:"status"`
	Terms  map[model.Taxonomy][]string `json:"terms,omitempty"`
	Fields map[string]json.RawMessage  `json:"fields,omitempty"`
}

// EditState is an item as seen by an editor, whatever its status.
type EditState struct {
	Item   *model.Item                 `json:"item"`
	Terms  map[model.Taxonomy][]string `json:"terms"`
	Fields map[string]json.RawMessage  `json:"fields"`
}

// CreateItem validates in and stores a new item with its terms and fields.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*model.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidItem)
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	item, err := store.CreateItem(ctx, s.DB, in.Slug, in.Title, in.Body, in.Status)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, item.ID, in); err != nil {
		// Drop the half-built row so a failed create leaves nothing visible.
		if derr := store.DeleteItem(ctx, s.DB, item.ID); derr != nil {
			s.log.Error("removing partially created item", zap.Int64("item_id", item.ID), zap.Error(derr))
		}
		return nil, err
	}

	s.InvalidateFacets()
	s.log.Info("item created", zap.Int64("item_id", item.ID), zap.String("slug", item.Slug))
	return store.GetItem(ctx, s.DB, item.ID)
}

// UpdateItem merges in over the stored item. A missing item yields (nil, nil).
func (s *Service) UpdateItem(ctx context.Context, id int64, in ItemInput) (*model.Item, error) {
	cur, err := store.GetItem(ctx, s.DB, id)
	if err != nil || cur == nil {
		return nil, err
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = cur.Title
	}
	slug := in.Slug
	if slug == "" {
		slug = cur.Slug
	}
	status := in.Status
	if status == "" {
		status = cur.Status
	}
	body := in.Body
	if body == "" {
		body = cur.Body
	}

	if err := store.UpdateItem(ctx, s.DB, id, slug, title, body, status); err != nil {
		return nil, err
	}
	if err := s.apply(ctx, id, in); err != nil {
		return nil, err
	}

	s.InvalidateFacets()
	return store.GetItem(ctx, s.DB, id)
}

// TrashItem moves an item to the trash.
func (s *Service) TrashItem(ctx context.Context, id int64) error {
	if err := store.TrashItem(ctx, s.DB, id); err != nil {
		return err
	}
	s.InvalidateFacets()
	return nil
}

// SetField writes one schema field of an item.
func (s *Service) SetField(ctx context.Context, id int64, name string, value json.RawMessage) error {
	return s.apply(ctx, id, ItemInput{Fields: map[string]json.RawMessage{name: value}})
}

// EditState loads an item with its raw terms and fields, or nil if missing.
func (s *Service) EditState(ctx context.Context, id int64) (*EditState, error) {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil || item == nil {
		return nil, err
	}

	byTax, err := store.ItemTerms(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	terms := make(map[model.Taxonomy][]string, len(model.Taxonomies))
	for _, tax := range model.Taxonomies {
		slugs := []string{}
		for _, t := range byTax[tax] {
			slugs = append(slugs, t.Slug)
		}
		terms[tax] = slugs
	}

	fields := map[string]json.RawMessage{}
	if s.Fields != nil {
		if fields, err = s.Fields.ItemFields(ctx, id); err != nil {
			return nil, err
		}
	}
	return &EditState{Item: item, Terms: terms, Fields: fields}, nil
}

func (s *Service) validate(ctx context.Context, in ItemInput) error {
	if in.Status != "" && !model.ValidItemStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidItem, in.Status)
	}

	for tax, slugs := range in.Terms {
		if !tax.Valid() {
			return fmt.Errorf("%w: unknown taxonomy %q", ErrInvalidItem, tax)
		}
		for _, slug := range slugs {
			t, err := store.GetTermBySlug(ctx, s.DB, tax, slug)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("%w: unknown term %s/%s", ErrInvalidItem, tax, slug)
			}
		}
	}

	if len(in.Fields) > 0 {
		if _, ok := s.Fields.(FieldWriter); !ok {
			return ErrFieldsDisabled
		}
	}
	for name, raw := range in.Fields {
		if _, ok := LookupField(name); !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidItem, name)
		}
		if len(raw) > 0 && !json.Valid(raw) {
			return fmt.Errorf("%w: field %q is not valid JSON", ErrInvalidItem, name)
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, id int64, in ItemInput) error {
	for _, tax := range model.Taxonomies {
		slugs, ok := in.Terms[tax]
		if !ok {
			continue
		}
		if err := store.SetItemTerms(ctx, s.DB, id, tax, slugs); err != nil {
			return err
		}
	}

	if len(in.Fields) == 0 {
		return nil
	}
	w, ok := s.Fields.(FieldWriter)
	if !ok {
		return ErrFieldsDisabled
	}
	for name, raw := range in.Fields {
		if _, ok := LookupField(name); !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidItem, name)
		}
		if err := w.SetItemField(ctx, id, name, raw); err != nil {
			return err
		}
	}
	return nil
}
