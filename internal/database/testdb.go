package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
)

// NewTestDB returns a migrated SQLite database in a temp directory.  It is
// closed when the test completes.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := OpenSQLite(filepath.Join(tb.TempDir(), "test.db"))
	if err != nil {
		tb.Fatalf("opening test db: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db, "sqlite3", goose.NopLogger()); err != nil {
		tb.Fatalf("migrating test db: %v", err)
	}
	return db
}
