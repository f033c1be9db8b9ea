// Package boltstore is a BoltDB backend for the catalog cache.
package boltstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketGeocodes  = []byte("geocodes")
)

var _ cache.Store = (*Store)(nil)

// envelope is the on-disk form of a snapshot: {timestamp, data}.
type envelope struct {
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Store implements cache.Store on a single bolt file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the bolt file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSnapshots, bucketGeocodes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the bolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the bolt file path.
func (s *Store) Path() string {
	return s.db.Path()
}

func (s *Store) get(bucket []byte, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}

func (s *Store) put(bucket []byte, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	})
}

// LoadSnapshot returns the snapshot stored under key, or nil.
func (s *Store) LoadSnapshot(key string) (*cache.Snapshot, error) {
	data, err := s.get(bucketSnapshots, key)
	if err != nil || data == nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot envelope: %w", err)
	}
	return &cache.Snapshot{FetchedAt: time.UnixMilli(env.Timestamp), Payload: env.Data}, nil
}

// SaveSnapshot writes snap under key.
func (s *Store) SaveSnapshot(key string, snap cache.Snapshot) error {
	if !json.Valid(snap.Payload) {
		return fmt.Errorf("snapshot payload is not valid JSON")
	}
	data, err := json.Marshal(envelope{Timestamp: snap.FetchedAt.UnixMilli(), Data: snap.Payload})
	if err != nil {
		return err
	}
	return s.put(bucketSnapshots, key, data)
}

// DeleteSnapshot removes the snapshot stored under key.
func (s *Store) DeleteSnapshot(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(key))
	})
}

// LoadCoordinate returns the coordinate cached for place, or nil.
func (s *Store) LoadCoordinate(place string) (*catalog.Coordinate, error) {
	data, err := s.get(bucketGeocodes, place)
	if err != nil || data == nil {
		return nil, err
	}
	var c catalog.Coordinate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding coordinate: %w", err)
	}
	return &c, nil
}

// SaveCoordinate stores the coordinate for place.
func (s *Store) SaveCoordinate(place string, coord catalog.Coordinate) error {
	data, err := json.Marshal(coord)
	if err != nil {
		return err
	}
	return s.put(bucketGeocodes, place, data)
}

// CountCoordinates returns the number of cached places.
func (s *Store) CountCoordinates() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketGeocodes).Stats().KeyN
		return nil
	})
	return n, err
}

// ClearCoordinates removes every cached place.
func (s *Store) ClearCoordinates() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketGeocodes); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketGeocodes)
		return err
	})
}
