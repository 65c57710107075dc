// Package sqlite is a local sandbox implementation of the event repository.
// It stores endpoints, events and labels in a SQLite file so reconciliation
// and the display can be exercised without platform credentials.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS endpoints (
	id TEXT PRIMARY KEY,
	stream_key TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	scheduled_start TEXT NOT NULL DEFAULT '',
	lifecycle TEXT NOT NULL DEFAULT 'created',
	recording TEXT NOT NULL DEFAULT 'notRecording',
	endpoint_id TEXT REFERENCES endpoints(id),
	category_id TEXT NOT NULL DEFAULT '',
	privacy_status TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	enable_auto_start INTEGER NOT NULL DEFAULT 0,
	enable_auto_stop INTEGER NOT NULL DEFAULT 0,
	enable_dvr INTEGER NOT NULL DEFAULT 0,
	enable_embed INTEGER NOT NULL DEFAULT 0,
	hide_view_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_endpoint ON events(endpoint_id);

CREATE TABLE IF NOT EXISTS event_labels (
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	label TEXT NOT NULL,
	PRIMARY KEY (event_id, label)
);
`

// Open opens (or creates) the sandbox database at path and applies the
// schema. ":memory:" gives a throwaway database.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sandbox database: %w", err)
	}
	// One connection: every :memory: connection is a separate database, and
	// a single writer avoids SQLITE_BUSY on files.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema enables foreign keys and creates missing tables.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
