// Package cache keeps the fetched catalog and resolved place coordinates on
// local disk so the dashboard can start without contacting the remote library.
package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

const (
	// SnapshotKey is the fixed key of the item snapshot.
	SnapshotKey = "catalog-items"

	// DefaultTTL is how long an item snapshot is considered fresh.
	DefaultTTL = 24 * time.Hour
)

// Snapshot is the raw persisted form of an item list.
type Snapshot struct {
	FetchedAt time.Time
	Payload   []byte
}

// Store is a durable backend for snapshots and coordinates.
// Load methods return nil with a nil error when the key is missing.
type Store interface {
	LoadSnapshot(key string) (*Snapshot, error)
	SaveSnapshot(key string, snap Snapshot) error
	DeleteSnapshot(key string) error

	LoadCoordinate(place string) (*catalog.Coordinate, error)
	SaveCoordinate(place string, coord catalog.Coordinate) error
	CountCoordinates() (int, error)
	ClearCoordinates() error

	Close() error
}

// Entry is a timestamped payload read back from the cache.
type Entry[T any] struct {
	FetchedAt time.Time
	Payload   T
}

// Age returns how long ago the entry was fetched.
func (e *Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Stats summarizes what the cache currently holds.
type Stats struct {
	HasSnapshot bool
	FetchedAt   time.Time
	ItemCount   int
	Fresh       bool
	Coordinates int
}

// Cache reads and writes the item snapshot and the geo map through a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over store. A non-positive ttl falls back to DefaultTTL.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the snapshot time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Load reads the item snapshot. A missing or unreadable snapshot is a miss.
func (c *Cache) Load() (*Entry[[]catalog.Item], bool) {
	snap, err := c.store.LoadSnapshot(SnapshotKey)
	if err != nil {
		log.Printf("Cache read failed, treating as miss: %v", err)
		return nil, false
	}
	if snap == nil {
		return nil, false
	}

	var items []catalog.Item
	if err := json.Unmarshal(snap.Payload, &items); err != nil {
		log.Printf("Cached snapshot is malformed, treating as miss: %v", err)
		return nil, false
	}
	return &Entry[[]catalog.Item]{FetchedAt: snap.FetchedAt, Payload: items}, true
}

// Store persists items stamped with the current time, replacing any prior snapshot.
func (c *Cache) Store(items []catalog.Item) error {
	if items == nil {
		items = []catalog.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	snap := Snapshot{FetchedAt: c.now(), Payload: data}
	if err := c.store.SaveSnapshot(SnapshotKey, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// IsFresh reports whether the entry is younger than the TTL.
func (c *Cache) IsFresh(entry *Entry[[]catalog.Item]) bool {
	if entry == nil {
		return false
	}
	return entry.Age(c.now()) < c.ttl
}

// LoadGeo returns the cached coordinate for place. Coordinates never expire.
func (c *Cache) LoadGeo(place string) (catalog.Coordinate, bool) {
	place = normalizePlace(place)
	if place == "" {
		return catalog.Coordinate{}, false
	}
	coord, err := c.store.LoadCoordinate(place)
	if err != nil {
		log.Printf("Geo cache read failed for %q: %v", place, err)
		return catalog.Coordinate{}, false
	}
	if coord == nil {
		return catalog.Coordinate{}, false
	}
	return *coord, true
}

// StoreGeo records the coordinate resolved for place.
func (c *Cache) StoreGeo(place string, coord catalog.Coordinate) error {
	place = normalizePlace(place)
	if place == "" {
		return nil
	}
	if err := c.store.SaveCoordinate(place, coord); err != nil {
		return fmt.Errorf("saving coordinate for %q: %w", place, err)
	}
	return nil
}

// Clear drops the item snapshot, and the geo map too when geo is set.
func (c *Cache) Clear(geo bool) error {
	if err := c.store.DeleteSnapshot(SnapshotKey); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if geo {
		if err := c.store.ClearCoordinates(); err != nil {
			return fmt.Errorf("clearing coordinates: %w", err)
		}
	}
	return nil
}

// Stats reports snapshot age and the number of cached coordinates.
func (c *Cache) Stats() (Stats, error) {
	var st Stats
	if entry, ok := c.Load(); ok {
		st.HasSnapshot = true
		st.FetchedAt = entry.FetchedAt
		st.ItemCount = len(entry.Payload)
		st.Fresh = c.IsFresh(entry)
	}
	n, err := c.store.CountCoordinates()
	if err != nil {
		return st, fmt.Errorf("counting coordinates: %w", err)
	}
	st.Coordinates = n
	return st, nil
}

// normalizePlace trims surrounding whitespace; the lookup is otherwise exact.
func normalizePlace(place string) string {
	return strings.TrimSpace(place)
}
