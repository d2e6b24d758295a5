package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetlend/internal/model"
)

// GrantCapability grants a capability to a role. Granting twice is a no-op.
func GrantCapability(ctx context.Context, db *sql.DB, role string, capability model.Capability) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO role_capabilities (role, capability) VALUES (?, ?)`,
		role, string(capability),
	)
	if err != nil {
		return fmt.Errorf("granting %s to %s: %w", capability, role, err)
	}
	return nil
}

// ListRoleCapabilities returns every granted capability grouped by role.
func ListRoleCapabilities(ctx context.Context, db *sql.DB) (map[string][]model.Capability, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT role, capability FROM role_capabilities ORDER BY role, capability`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing role capabilities: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Capability)
	for rows.Next() {
		var role, capability string
		if err := rows.Scan(&role, &capability); err != nil {
			return nil, fmt.Errorf("scanning role capability: %w", err)
		}
		out[role] = append(out[role], model.Capability(capability))
	}
	return out, rows.Err()
}
