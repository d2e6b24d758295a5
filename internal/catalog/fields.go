package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// FieldType is the declared type of a custom field.
type FieldType string

// Field types.
const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldDate         FieldType = "date"
	FieldNumber       FieldType = "number"
	FieldFile         FieldType = "file"
	FieldRelationship FieldType = "relationship"
	FieldPostObject   FieldType = "post_object"
)

// FieldDef declares one custom field.
type FieldDef struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Type  FieldType `json:"type"`
}

// Field names with behavior attached.
const (
	FieldComponents = "components"
	FieldKit        = "kit"
)

// Schema is the fixed display order of custom fields. Stored fields not
// listed here are never shown.
var Schema = []FieldDef{
	{"manufacturer", "Manufacturer", FieldText},
	{"model", "Model", FieldText},
	{"purchase_date", "Purchase date", FieldDate},
	{"cost", "Cost", FieldNumber},
	{"dimensions", "Dimensions", FieldText},
	{"weight", "Weight", FieldText},
	{"location", "Location", FieldText},
	{"user_manual", "User manual", FieldFile},
	{"technical_data_sheet", "Technical data sheet", FieldFile},
	{"serial_number", "Serial number", FieldText},
	{"external_code", "External code", FieldText},
	{"notes", "Notes", FieldTextarea},
	{FieldComponents, "Components", FieldRelationship},
}

// kitDef is the synthetic field listing the kit a component belongs to.
var kitDef = FieldDef{FieldKit, "Membership kit", FieldPostObject}

// kitLookupLimit caps the parent kits resolved for a component.
const kitLookupLimit = 1

// LookupField returns the schema entry for name.
func LookupField(name string) (FieldDef, bool) {
	for _, def := range Schema {
		if def.Name == name {
			return def, true
		}
	}
	return FieldDef{}, false
}

// Field is one display-ready custom field value.
type Field struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Type  FieldType `json:"type"`
	Value any       `json:"value"`
}

// ItemRef points at another published item.
type ItemRef struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
}

// FileRef is an attached file.
type FileRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MIME     string `json:"mime,omitempty"`
}

// CustomFields returns the item's non-empty schema fields in schema order.
// Components additionally get a "kit" field naming their parent kit.
// A nil field store yields an empty list.
func (s *Service) CustomFields(ctx context.Context, id int64) ([]Field, error) {
	out := []Field{}
	if s.Fields == nil {
		return out, nil
	}

	stored, err := s.Fields.ItemFields(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading fields of item %d: %w", id, err)
	}

	for _, def := range Schema {
		raw, ok := stored[def.Name]
		if !ok || isEmptyJSON(raw) {
			continue
		}

		value, err := s.decodeField(ctx, def, raw)
		if err != nil {
			s.log.Debug("skipping malformed field",
				zap.Int64("item_id", id), zap.String("field", def.Name), zap.Error(err))
			continue
		}
		if value == nil {
			continue
		}
		out = append(out, Field{Name: def.Name, Label: def.Label, Type: def.Type, Value: value})
	}

	isComponent, err := store.ItemHasTerm(ctx, s.DB, id, model.TaxonomyStructure, model.StructureComponent)
	if err != nil {
		return nil, fmt.Errorf("checking structure of item %d: %w", id, err)
	}
	if isComponent {
		kits, err := s.Fields.FindReferencing(ctx, FieldComponents, id, kitLookupLimit)
		if err != nil {
			return nil, fmt.Errorf("finding kit of item %d: %w", id, err)
		}
		if len(kits) > 0 {
			refs := make([]ItemRef, 0, len(kits))
			for _, k := range kits {
				refs = append(refs, ItemRef{ID: k.ID, Title: k.Title, Permalink: s.Permalink(k.Slug)})
			}
			out = append(out, Field{Name: kitDef.Name, Label: kitDef.Label, Type: kitDef.Type, Value: refs})
		}
	}

	return out, nil
}

// decodeField turns a stored JSON value into its display form. A nil result
// means the value is empty after decoding.
func (s *Service) decodeField(ctx context.Context, def FieldDef, raw json.RawMessage) (any, error) {
	switch def.Type {
	case FieldNumber:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		switch t := v.(type) {
		case json.Number:
			n = t
		case string:
			if t == "" {
				return nil, nil
			}
			if _, err := strconv.ParseFloat(t, 64); err != nil {
				return nil, fmt.Errorf("not a number: %q", t)
			}
			n = json.Number(t)
		default:
			return nil, fmt.Errorf("unexpected number value %s", raw)
		}
		return n, nil

	case FieldFile:
		var url string
		if err := json.Unmarshal(raw, &url); err == nil {
			if url == "" {
				return nil, nil
			}
			return FileRef{URL: url, Filename: url[strings.LastIndex(url, "/")+1:]}, nil
		}
		var f FileRef
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		if f.URL == "" {
			return nil, nil
		}
		return f, nil

	case FieldRelationship, FieldPostObject:
		ids, err := decodeIDs(raw)
		if err != nil {
			return nil, err
		}
		refs := []ItemRef{}
		for _, ref := range ids {
			item, err := store.GetItem(ctx, s.DB, ref)
			if err != nil {
				return nil, err
			}
			if item == nil || item.Status != model.ItemStatusPublish {
				continue
			}
			refs = append(refs, ItemRef{ID: item.ID, Title: item.Title, Permalink: s.Permalink(item.Slug)})
		}
		if len(refs) == 0 {
			return nil, nil
		}
		return refs, nil

	default:
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			if str == "" {
				return nil, nil
			}
			return str, nil
		}
		// Non-string scalars are shown as written.
		return strings.TrimSpace(string(raw)), nil
	}
}

// decodeIDs accepts a single id or a list of ids, as numbers or numeric strings.
func decodeIDs(raw json.RawMessage) ([]int64, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}

	ids := make([]int64, 0, len(list))
	for _, elem := range list {
		var n int64
		if err := json.Unmarshal(elem, &n); err == nil {
			ids = append(ids, n)
			continue
		}
		var str string
		if err := json.Unmarshal(elem, &str); err != nil {
			return nil, fmt.Errorf("invalid item reference %s", elem)
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item reference %q", str)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// isEmptyJSON reports null, "" and [] values.
func isEmptyJSON(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", `""`, "[]":
		return true
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) == 0 {
		return true
	}
	return false
}
