package db

import (
	"context"
	"database/sql"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL DEFAULT '',
    locale        TEXT NOT NULL DEFAULT '',
    slack_user_id TEXT NOT NULL DEFAULT '',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    is_superuser  BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE TABLE IF NOT EXISTS notice_types (
    id                  BIGSERIAL PRIMARY KEY,
    label               VARCHAR(40) NOT NULL UNIQUE,
    display             VARCHAR(50) NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    default_sensitivity INTEGER NOT NULL DEFAULT 2
)`,
	`CREATE TABLE IF NOT EXISTS notice_settings (
    id             BIGSERIAL PRIMARY KEY,
    user_id        BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    notice_type_id BIGINT NOT NULL REFERENCES notice_types(id) ON DELETE CASCADE,
    medium         VARCHAR(40) NOT NULL,
    send           BOOLEAN NOT NULL,
    UNIQUE (user_id, notice_type_id, medium)
)`,
	`CREATE TABLE IF NOT EXISTS notices (
    id             BIGSERIAL PRIMARY KEY,
    user_id        BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    sender_id      BIGINT REFERENCES users(id) ON DELETE SET NULL,
    message        TEXT NOT NULL,
    notice_type_id BIGINT NOT NULL REFERENCES notice_types(id) ON DELETE CASCADE,
    added          TIMESTAMPTZ NOT NULL DEFAULT now(),
    unseen         BOOLEAN NOT NULL DEFAULT TRUE,
    archived       BOOLEAN NOT NULL DEFAULT FALSE,
    on_site        BOOLEAN NOT NULL DEFAULT TRUE
)`,
	`CREATE TABLE IF NOT EXISTS notice_queue_batches (
    id         BIGSERIAL PRIMARY KEY,
    payload    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS observed_items (
    id               BIGSERIAL PRIMARY KEY,
    content_type     TEXT NOT NULL,
    object_id        BIGINT NOT NULL,
    notice_type_id   BIGINT NOT NULL REFERENCES notice_types(id) ON DELETE CASCADE,
    observer_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    signal           TEXT NOT NULL,
    message_template TEXT NOT NULL DEFAULT '',
    added            TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (content_type, object_id, observer_id, signal)
)`,
	`CREATE INDEX IF NOT EXISTS idx_notices_user_added ON notices(user_id, added DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_observed_items_target ON observed_items(content_type, object_id, signal)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL DEFAULT '',
    locale        TEXT NOT NULL DEFAULT '',
    slack_user_id TEXT NOT NULL DEFAULT '',
    is_active     BOOLEAN NOT NULL DEFAULT 1,
    is_superuser  BOOLEAN NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS notice_types (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    label               TEXT NOT NULL UNIQUE,
    display             TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    default_sensitivity INTEGER NOT NULL DEFAULT 2
)`,
	`CREATE TABLE IF NOT EXISTS notice_settings (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    notice_type_id INTEGER NOT NULL REFERENCES notice_types(id) ON DELETE CASCADE,
    medium         TEXT NOT NULL,
    send           BOOLEAN NOT NULL,
    UNIQUE (user_id, notice_type_id, medium)
)`,
	`CREATE TABLE IF NOT EXISTS notices (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    sender_id      INTEGER REFERENCES users(id) ON DELETE SET NULL,
    message        TEXT NOT NULL,
    notice_type_id INTEGER NOT NULL REFERENCES notice_types(id) ON DELETE CASCADE,
    added          DATETIME NOT NULL,
    unseen         BOOLEAN NOT NULL DEFAULT 1,
    archived       BOOLEAN NOT NULL DEFAULT 0,
    on_site        BOOLEAN NOT NULL DEFAULT 1
)`,
	`CREATE TABLE IF NOT EXISTS notice_queue_batches (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    payload    TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS observed_items (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    content_type     TEXT NOT NULL,
    object_id        INTEGER NOT NULL,
    notice_type_id   INTEGER NOT NULL REFERENCES notice_types(id) ON DELETE CASCADE,
    observer_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    signal           TEXT NOT NULL,
    message_template TEXT NOT NULL DEFAULT '',
    added            DATETIME NOT NULL,
    UNIQUE (content_type, object_id, observer_id, signal)
)`,
	`CREATE INDEX IF NOT EXISTS idx_notices_user_added ON notices(user_id, added DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_observed_items_target ON observed_items(content_type, object_id, signal)`,
}

var dropOrder = []string{
	`DROP TABLE IF EXISTS observed_items`,
	`DROP TABLE IF EXISTS notice_queue_batches`,
	`DROP TABLE IF EXISTS notices`,
	`DROP TABLE IF EXISTS notice_settings`,
	`DROP TABLE IF EXISTS notice_types`,
	`DROP TABLE IF EXISTS users`,
}

// MigrateUp creates the PostgreSQL schema. Safe to run repeatedly.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	return execAll(ctx, db, postgresSchema)
}

// MigrateUpSQLite creates the SQLite schema. Safe to run repeatedly.
func MigrateUpSQLite(ctx context.Context, db *sql.DB) error {
	return execAll(ctx, db, sqliteSchema)
}

// MigrateDown removes every table in dependency order.
// Use with caution: this deletes all notification data.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	return execAll(ctx, db, dropOrder)
}

func execAll(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
