package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/cache/boltstore"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
	"github.com/TobiSchelling/refexplorer/internal/database"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func backends(t *testing.T) map[string]cache.Store {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bs, err := boltstore.Open(filepath.Join(dir, "test.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]cache.Store{"sqlite": db, "bolt": bs}
}

func sampleItems() []catalog.Item {
	return []catalog.Item{
		{
			Key:      "AAAA1111",
			Type:     "document",
			Title:    "Field notes",
			Date:     "2020-05-01",
			Place:    "Cologne",
			Creators: []catalog.Creator{{CreatorType: "author", FirstName: "Ada", LastName: "Lovelace"}},
			Tags:     []string{"x"},
		},
		{Key: "BBBB2222", Type: "letter", Date: "2021-01-01", Tags: []string{"x"}},
		{Key: "CCCC3333", Type: "document", Tags: []string{"y"}},
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
			c := cache.New(store, cache.DefaultTTL, cache.WithClock(clk.Now))

			items := sampleItems()
			require.NoError(t, c.Store(items))

			entry, ok := c.Load()
			require.True(t, ok)
			assert.Equal(t, items, entry.Payload)
			assert.True(t, entry.FetchedAt.Equal(clk.now))
			assert.True(t, c.IsFresh(entry))
		})
	}
}

func TestIsFreshBoundary(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
			c := cache.New(store, 24*time.Hour, cache.WithClock(clk.Now))
			require.NoError(t, c.Store(sampleItems()))
			entry, ok := c.Load()
			require.True(t, ok)

			clk.now = clk.now.Add(24*time.Hour - time.Millisecond)
			assert.True(t, c.IsFresh(entry), "just under the TTL is fresh")

			clk.now = clk.now.Add(time.Millisecond)
			assert.False(t, c.IsFresh(entry), "exactly the TTL is stale")
		})
	}
}

func TestLoadMissing(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := cache.New(store, 0)
			entry, ok := c.Load()
			assert.False(t, ok)
			assert.Nil(t, entry)
			assert.False(t, c.IsFresh(entry))
		})
	}
}

func TestLoadMalformedIsMiss(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Valid JSON, wrong shape: the item list cannot decode from an object.
			err := store.SaveSnapshot(cache.SnapshotKey, cache.Snapshot{
				FetchedAt: time.Now(),
				Payload:   []byte(`{"not":"a list"}`),
			})
			require.NoError(t, err)

			c := cache.New(store, 0)
			_, ok := c.Load()
			assert.False(t, ok)
		})
	}
}

func TestGeoNeverExpires(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
			c := cache.New(store, time.Hour, cache.WithClock(clk.Now))

			_, ok := c.LoadGeo("Cologne")
			assert.False(t, ok)

			want := catalog.Coordinate{Lat: 50.94, Lon: 6.96}
			require.NoError(t, c.StoreGeo(" Cologne ", want))

			clk.now = clk.now.Add(365 * 24 * time.Hour)
			got, ok := c.LoadGeo("Cologne")
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestClear(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := cache.New(store, 0)
			require.NoError(t, c.Store(sampleItems()))
			require.NoError(t, c.StoreGeo("Paris", catalog.Coordinate{Lat: 48.85, Lon: 2.35}))

			require.NoError(t, c.Clear(false))
			_, ok := c.Load()
			assert.False(t, ok)
			_, ok = c.LoadGeo("Paris")
			assert.True(t, ok, "geo entries survive a snapshot clear")

			require.NoError(t, c.Clear(true))
			_, ok = c.LoadGeo("Paris")
			assert.False(t, ok)
		})
	}
}

func TestStats(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := cache.New(store, 0)
			st, err := c.Stats()
			require.NoError(t, err)
			assert.False(t, st.HasSnapshot)
			assert.Zero(t, st.Coordinates)

			require.NoError(t, c.Store(sampleItems()))
			require.NoError(t, c.StoreGeo("Paris", catalog.Coordinate{Lat: 48.85, Lon: 2.35}))

			st, err = c.Stats()
			require.NoError(t, err)
			assert.True(t, st.HasSnapshot)
			assert.True(t, st.Fresh)
			assert.Equal(t, 3, st.ItemCount)
			assert.Equal(t, 1, st.Coordinates)
		})
	}
}
