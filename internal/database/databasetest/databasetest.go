// Package databasetest provides migrated in-memory databases for tests.
package databasetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/isdelr/discordin/internal/database"
)

// New returns a fresh, fully migrated in-memory database closed at the end of the test.
func New(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate in-memory database: %v", err)
	}
	return db
}
