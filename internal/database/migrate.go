package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// migrateDriver is the driver of the run in progress, for Go migrations
// that only apply to one dialect.  Guarded by migrateMu.
var migrateDriver string

// Migrate applies the embedded schema migrations.  The SQL files run
// unchanged on MySQL and SQLite; driver selects the goose dialect and the
// dialect-specific Go migrations registered in this package.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger goose.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if logger != nil {
		goose.SetLogger(logger)
	}
	goose.SetBaseFS(migrations)
	migrateDriver = driver
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
