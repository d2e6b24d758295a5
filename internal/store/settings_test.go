package store

import (
	"context"
	"testing"

	"github.com/erazemk/assetlend/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestPutAndGetSetting(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, ok, err := GetSetting(ctx, database, "catalog_settings")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected missing setting")
	}

	PutSetting(ctx, database, "catalog_settings", `{"a":1}`)
	PutSetting(ctx, database, "catalog_settings", `{"a":2}`)

	value, ok, _ := GetSetting(ctx, database, "catalog_settings")
	if !ok || value != `{"a":2}` {
		t.Errorf("expected last write to win, got %q (%v)", value, ok)
	}

	DeleteSetting(ctx, database, "catalog_settings")
	_, ok, _ = GetSetting(ctx, database, "catalog_settings")
	if ok {
		t.Error("expected setting to be deleted")
	}
}
