package database

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

// MySQL's default utf8mb4 collation folds case and accents, so "Admin" and
// "admin" would be one account.  SQLite compares bytes already.
func init() {
	goose.AddMigrationContext(upUsernameBinary, downUsernameBinary)
}

func upUsernameBinary(ctx context.Context, tx *sql.Tx) error {
	if migrateDriver != "mysql" {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		"ALTER TABLE users MODIFY username VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL")
	return err
}

func downUsernameBinary(ctx context.Context, tx *sql.Tx) error {
	if migrateDriver != "mysql" {
		return nil
	}
	_, err := tx.ExecContext(ctx, "ALTER TABLE users MODIFY username VARCHAR(64) NOT NULL")
	return err
}
