package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/erazemk/assetlend/internal/db"
	"github.com/erazemk/assetlend/internal/model"
)

func TestSetAndGetItemFields(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	fields := &Fields{DB: database}

	item, _ := CreateItem(ctx, database, "", "Dobson", "", model.ItemStatusPublish)

	if err := fields.SetItemField(ctx, item.ID, "manufacturer", json.RawMessage(`"Sky-Watcher"`)); err != nil {
		t.Fatalf("SetItemField: %v", err)
	}
	fields.SetItemField(ctx, item.ID, "cost", json.RawMessage(`350`))
	fields.SetItemField(ctx, item.ID, "cost", json.RawMessage(`399.5`))

	got, err := fields.ItemFields(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemFields: %v", err)
	}
	if string(got["manufacturer"]) != `"Sky-Watcher"` || string(got["cost"]) != `399.5` {
		t.Errorf("unexpected fields %v", got)
	}

	fields.SetItemField(ctx, item.ID, "cost", json.RawMessage(`null`))
	got, _ = fields.ItemFields(ctx, item.ID)
	if _, ok := got["cost"]; ok {
		t.Error("expected null to remove the field")
	}

	if err := fields.SetItemField(ctx, item.ID, "notes", json.RawMessage(`{broken`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFindReferencing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	fields := &Fields{DB: database}

	part, _ := CreateItem(ctx, database, "", "Eyepiece", "", model.ItemStatusPublish)
	kitB, _ := CreateItem(ctx, database, "", "Kit B", "", model.ItemStatusPublish)
	kitA, _ := CreateItem(ctx, database, "", "Kit A", "", model.ItemStatusPublish)
	draft, _ := CreateItem(ctx, database, "", "Kit draft", "", model.ItemStatusDraft)
	other, _ := CreateItem(ctx, database, "", "Unrelated", "", model.ItemStatusPublish)

	refs := json.RawMessage(`[` + itoa(part.ID) + `]`)
	fields.SetItemField(ctx, kitB.ID, "components", refs)
	fields.SetItemField(ctx, kitA.ID, "components", json.RawMessage(`["`+itoa(part.ID)+`", 999]`))
	fields.SetItemField(ctx, draft.ID, "components", refs)
	fields.SetItemField(ctx, other.ID, "components", json.RawMessage(`[999]`))

	items, err := fields.FindReferencing(ctx, "components", part.ID, 0)
	if err != nil {
		t.Fatalf("FindReferencing: %v", err)
	}
	if len(items) != 2 || items[0].ID != kitA.ID || items[1].ID != kitB.ID {
		t.Errorf("expected Kit A and Kit B, got %+v", items)
	}

	items, _ = fields.FindReferencing(ctx, "components", part.ID, 1)
	if len(items) != 1 {
		t.Errorf("expected limit to apply, got %d", len(items))
	}
}

func TestFindReferencingSingleID(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	fields := &Fields{DB: database}

	part, _ := CreateItem(ctx, database, "", "Eyepiece", "", model.ItemStatusPublish)
	numeric, _ := CreateItem(ctx, database, "", "Kit A", "", model.ItemStatusPublish)
	quoted, _ := CreateItem(ctx, database, "", "Kit B", "", model.ItemStatusPublish)
	other, _ := CreateItem(ctx, database, "", "Unrelated", "", model.ItemStatusPublish)

	fields.SetItemField(ctx, numeric.ID, "components", json.RawMessage(itoa(part.ID)))
	fields.SetItemField(ctx, quoted.ID, "components", json.RawMessage(`"`+itoa(part.ID)+`"`))
	fields.SetItemField(ctx, other.ID, "components", json.RawMessage(`999`))

	items, err := fields.FindReferencing(ctx, "components", part.ID, 0)
	if err != nil {
		t.Fatalf("FindReferencing: %v", err)
	}
	if len(items) != 2 || items[0].ID != numeric.ID || items[1].ID != quoted.ID {
		t.Errorf("expected Kit A and Kit B, got %+v", items)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
