package authz

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// Subject is whoever performs an action. The zero value is an anonymous visitor.
type Subject struct {
	UserID int64
	Role   string
}

// Anonymous reports whether the subject is not logged in.
func (s Subject) Anonymous() bool {
	return s.UserID == 0
}

// Resource is the optional target of an action.
type Resource struct {
	Item *model.Item
}

// Authorizer answers capability questions for every layer.
type Authorizer struct {
	DB *sql.DB
	// PublicCatalog lets anonymous visitors browse published items.
	PublicCatalog bool

	mu     sync.RWMutex
	grants map[string]map[model.Capability]bool
}

// New creates an authorizer. Call Reload or Activate before use.
func New(db *sql.DB, publicCatalog bool) *Authorizer {
	return &Authorizer{DB: db, PublicCatalog: publicCatalog}
}

// Name identifies the module.
func (a *Authorizer) Name() string { return "roles" }

// Activate grants the default capabilities and loads them.
func (a *Authorizer) Activate(ctx context.Context) error {
	if err := GrantDefaults(ctx, a.DB); err != nil {
		return err
	}
	return a.Reload(ctx)
}

// Deactivate leaves every grant in place.
func (a *Authorizer) Deactivate(context.Context) error { return nil }

// GrantDefaults stores model.DefaultGrants. Existing grants are kept.
func GrantDefaults(ctx context.Context, db *sql.DB) error {
	for _, role := range []string{model.RoleAdministrator, model.RoleOperator, model.RoleMember} {
		for _, c := range model.DefaultGrants[role] {
			if err := store.GrantCapability(ctx, db, role, c); err != nil {
				return fmt.Errorf("granting defaults: %w", err)
			}
		}
	}
	return nil
}

// Reload reads the grants table into memory.
func (a *Authorizer) Reload(ctx context.Context) error {
	byRole, err := store.ListRoleCapabilities(ctx, a.DB)
	if err != nil {
		return err
	}

	grants := make(map[string]map[model.Capability]bool, len(byRole))
	for role, caps := range byRole {
		grants[role] = make(map[model.Capability]bool, len(caps))
		for _, c := range caps {
			grants[role][c] = true
		}
	}

	a.mu.Lock()
	a.grants = grants
	a.mu.Unlock()
	return nil
}

// Can reports whether subject may perform action on resource.
// Administrators may do everything. Viewing an unpublished item also
// requires edit_item.
func (a *Authorizer) Can(subject Subject, action model.Capability, resource Resource) bool {
	if !subject.Anonymous() && subject.Role == model.RoleAdministrator {
		return true
	}

	if !a.has(subject, action) {
		return false
	}

	if action == model.CapViewItem && resource.Item != nil && resource.Item.Status != model.ItemStatusPublish {
		return a.has(subject, model.CapEditItem)
	}
	return true
}

// Capabilities lists what subject holds, for templates and API clients.
func (a *Authorizer) Capabilities(subject Subject) []model.Capability {
	var out []model.Capability
	for _, c := range model.AllCapabilities {
		if a.Can(subject, c, Resource{}) {
			out = append(out, c)
		}
	}
	return out
}

func (a *Authorizer) has(subject Subject, c model.Capability) bool {
	if subject.Anonymous() {
		return a.PublicCatalog && (c == model.CapViewItems || c == model.CapViewItem)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.grants[subject.Role][c]
}
