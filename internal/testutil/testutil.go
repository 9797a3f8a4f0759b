package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/usagesentry/usagesentry/internal/repository/postgres"
	"github.com/usagesentry/usagesentry/migrations"
)

// NewTestDB creates an in-memory SQLite database with the full schema
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
