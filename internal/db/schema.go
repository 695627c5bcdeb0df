package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// schema is the full SQLite schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    first_name    TEXT NOT NULL DEFAULT '',
    last_name     TEXT NOT NULL DEFAULT '',
    username      TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user'
                  CHECK (role IN ('owner', 'manager', 'admin', 'editor', 'user')),
    is_active     BOOLEAN NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS used_challenges (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, d *DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, d.DB, "migrations")
}

// EnsureSchema creates all tables and indexes if they don't already exist.
// PostgreSQL databases are brought up to date with the embedded goose
// migrations; SQLite uses the inline schema.
func EnsureSchema(ctx context.Context, d *DB) error {
	if d.Driver == DriverPostgres {
		if err := gooseUp(ctx, d); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		return nil
	}

	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
