package database

import "database/sql"

// Migration is one step of the cache schema.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations are applied in order; versions only grow.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
    key TEXT PRIMARY KEY,
    fetched_at INTEGER NOT NULL,
    payload BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS geocodes (
    place TEXT PRIMARY KEY,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    resolved_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
}
