package database

import (
	"database/sql"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// LoadCoordinate returns the coordinate cached for place, or nil.
func (db *DB) LoadCoordinate(place string) (*catalog.Coordinate, error) {
	var c catalog.Coordinate
	err := db.conn.QueryRow(
		"SELECT lat, lon FROM geocodes WHERE place = ?", place,
	).Scan(&c.Lat, &c.Lon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCoordinate stores the coordinate for place.
func (db *DB) SaveCoordinate(place string, coord catalog.Coordinate) error {
	_, err := db.conn.Exec(
		`INSERT INTO geocodes (place, lat, lon) VALUES (?, ?, ?)
		ON CONFLICT(place) DO UPDATE SET lat = excluded.lat, lon = excluded.lon, resolved_at = datetime('now')`,
		place, coord.Lat, coord.Lon,
	)
	return err
}

// CountCoordinates returns the number of cached places.
func (db *DB) CountCoordinates() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM geocodes").Scan(&n)
	return n, err
}

// ClearCoordinates removes every cached place.
func (db *DB) ClearCoordinates() error {
	_, err := db.conn.Exec("DELETE FROM geocodes")
	return err
}
