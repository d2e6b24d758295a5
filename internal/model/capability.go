package model

// Capability is a named permission granted to roles.
type Capability string

// Capabilities.
const (
	CapViewItems      Capability = "view_items"
	CapViewItem       Capability = "view_item"
	CapCreateItem     Capability = "create_item"
	CapEditItem       Capability = "edit_item"
	CapManageTerms    Capability = "manage_terms"
	CapManageSettings Capability = "manage_settings"
	CapManageUsers    Capability = "manage_users"
)

// AllCapabilities lists every capability managed by the catalog.
var AllCapabilities = []Capability{
	CapViewItems,
	CapViewItem,
	CapCreateItem,
	CapEditItem,
	CapManageTerms,
	CapManageSettings,
	CapManageUsers,
}

// DefaultGrants is the capability set each role receives on activation.
// Administrators are always granted everything.
var DefaultGrants = map[string][]Capability{
	RoleAdministrator: AllCapabilities,
	RoleOperator: {
		CapViewItems,
		CapViewItem,
		CapCreateItem,
		CapEditItem,
		CapManageTerms,
	},
	RoleMember: {
		CapViewItems,
		CapViewItem,
	},
}
