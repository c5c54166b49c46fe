package db

import (
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS signal_journal (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    signal TEXT NOT NULL,
    price REAL,
    previous TEXT NOT NULL,
    current TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    steps INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_signal_journal_created ON signal_journal(created_at);

CREATE TABLE IF NOT EXISTS position_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    state TEXT NOT NULL CHECK (state IN ('none','buy','sell')),
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// ApplyMigrations creates the journal and position tables if missing.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("apply migrations: database not open")
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
