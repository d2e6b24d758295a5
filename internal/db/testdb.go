package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns an in-memory catalog database with the schema applied.
// Each fixture statement is executed after the schema, in order.
func NewTestDB(tb testing.TB, fixtures ...string) *sql.DB {
	tb.Helper()

	database, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("opening test database: %v", err)
	}
	tb.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		tb.Fatalf("applying schema to test database: %v", err)
	}
	for _, stmt := range fixtures {
		if _, err := database.Exec(stmt); err != nil {
			tb.Fatalf("loading fixture %q: %v", stmt, err)
		}
	}

	return database
}
