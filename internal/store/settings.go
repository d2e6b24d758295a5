package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetSetting returns a setting value and whether it exists.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutSetting stores a setting value, replacing any previous one.
func PutSetting(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting.
func DeleteSetting(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// GetOrCreateSecret returns the random hex secret stored under key, generating
// one on first use. INSERT OR IGNORE + re-SELECT keeps concurrent startups
// agreeing on a single value.
func GetOrCreateSecret(ctx context.Context, db *sql.DB, key string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	var secret string
	err = db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}
	return secret, nil
}

// GetJWTSecret returns the signing secret for session tokens and nonces.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	return GetOrCreateSecret(ctx, db, "jwt_secret")
}
