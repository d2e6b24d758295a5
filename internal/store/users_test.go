package store

import (
	"context"
	"testing"

	"github.com/erazemk/assetlend/internal/db"
	"github.com/erazemk/assetlend/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleMember)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleMember {
		t.Errorf("expected role 'member', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleAdministrator)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Username != "alice" {
		t.Errorf("expected 'alice', got %q", user.Username)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "hash", model.RoleMember)
	CreateUser(ctx, database, "b", "hash", model.RoleOperator)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "deleteme", "hash", model.RoleMember)
	DeleteUser(ctx, database, user.ID)

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", model.RoleMember)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestUpdateUserRoleAndCount(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "op", "hash", model.RoleMember)
	CreateUser(ctx, database, "gone", "hash", model.RoleMember)
	gone, _ := GetUserByUsername(ctx, database, "gone")
	DeleteUser(ctx, database, gone.ID)

	if err := UpdateUserRole(ctx, database, user.ID, model.RoleOperator); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.Role != model.RoleOperator {
		t.Errorf("expected operator, got %q", got.Role)
	}

	n, err := CountUsers(ctx, database)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 active user, got %d", n)
	}
}

func TestGetUserByUsernamePrefersActive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	old, _ := CreateUser(ctx, database, "reused", "old", model.RoleMember)
	DeleteUser(ctx, database, old.ID)
	fresh, _ := CreateUser(ctx, database, "reused", "new", model.RoleOperator)

	got, err := GetUserByUsername(ctx, database, "reused")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != fresh.ID {
		t.Errorf("expected active user %d, got %d", fresh.ID, got.ID)
	}
}
