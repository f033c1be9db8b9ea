package database

import (
	"database/sql"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/cache"
)

// LoadSnapshot returns the snapshot stored under key, or nil if there is none.
func (db *DB) LoadSnapshot(key string) (*cache.Snapshot, error) {
	var fetchedAt int64
	var payload []byte
	err := db.conn.QueryRow(
		"SELECT fetched_at, payload FROM snapshots WHERE key = ?", key,
	).Scan(&fetchedAt, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cache.Snapshot{FetchedAt: time.UnixMilli(fetchedAt), Payload: payload}, nil
}

// SaveSnapshot writes snap under key, replacing any previous value.
func (db *DB) SaveSnapshot(key string, snap cache.Snapshot) error {
	_, err := db.conn.Exec(
		`INSERT INTO snapshots (key, fetched_at, payload) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		key, snap.FetchedAt.UnixMilli(), snap.Payload,
	)
	return err
}

// DeleteSnapshot removes the snapshot stored under key.
func (db *DB) DeleteSnapshot(key string) error {
	_, err := db.conn.Exec("DELETE FROM snapshots WHERE key = ?", key)
	return err
}
