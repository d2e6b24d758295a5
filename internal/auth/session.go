package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assetlend/internal/store"
)

// Resolve turns a raw session token into claims for an active user.
// Revoked tokens and tokens of deleted users yield ErrInvalidToken. The
// returned role is the user's current role, not the one signed into the token.
func Resolve(ctx context.Context, db *sql.DB, secret, token string) (*Claims, error) {
	claims, err := ValidateToken(secret, token)
	if err != nil {
		return nil, err
	}

	revoked, err := store.IsTokenRevoked(ctx, db, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("checking revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	user, err := store.GetUser(ctx, db, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading session user: %w", err)
	}
	if user == nil || user.DeletedAt != nil {
		return nil, ErrInvalidToken
	}

	claims.Username = user.Username
	claims.Role = user.Role
	return claims, nil
}

// Revoke blocklists the token's ID until it would have expired anyway.
func Revoke(ctx context.Context, db *sql.DB, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return store.RevokeToken(ctx, db, claims.ID, claims.ExpiresAt.Time)
}
