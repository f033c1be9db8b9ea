package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadSnapshotMissing(t *testing.T) {
	db := openTestDB(t)
	snap, err := db.LoadSnapshot("catalog-items")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Error("expected nil snapshot for empty database")
	}
}

func TestSaveSnapshotOverwrites(t *testing.T) {
	db := openTestDB(t)
	first := time.UnixMilli(1_700_000_000_000)
	second := first.Add(time.Hour)

	if err := db.SaveSnapshot("k", cache.Snapshot{FetchedAt: first, Payload: []byte(`[1]`)}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := db.SaveSnapshot("k", cache.Snapshot{FetchedAt: second, Payload: []byte(`[2]`)}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	snap, err := db.LoadSnapshot("k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot")
	}
	if !snap.FetchedAt.Equal(second) {
		t.Errorf("expected fetched_at %v, got %v", second, snap.FetchedAt)
	}
	if string(snap.Payload) != "[2]" {
		t.Errorf("expected payload [2], got %s", snap.Payload)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	db := openTestDB(t)
	db.SaveSnapshot("k", cache.Snapshot{FetchedAt: time.Now(), Payload: []byte(`[]`)})

	if err := db.DeleteSnapshot("k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, _ := db.LoadSnapshot("k")
	if snap != nil {
		t.Error("expected snapshot to be gone")
	}
}

func TestCoordinateLifecycle(t *testing.T) {
	db := openTestDB(t)

	c, err := db.LoadCoordinate("Cologne")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Error("expected nil coordinate before save")
	}

	if err := db.SaveCoordinate("Cologne", catalog.Coordinate{Lat: 50.94, Lon: 6.96}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.SaveCoordinate("Paris", catalog.Coordinate{Lat: 48.85, Lon: 2.35})

	c, _ = db.LoadCoordinate("Cologne")
	if c == nil || c.Lat != 50.94 || c.Lon != 6.96 {
		t.Errorf("unexpected coordinate: %+v", c)
	}

	n, err := db.CountCoordinates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 coordinates, got %d", n)
	}

	if err := db.ClearCoordinates(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ = db.CountCoordinates()
	if n != 0 {
		t.Errorf("expected 0 coordinates after clear, got %d", n)
	}
}

func TestCoordinateUpsert(t *testing.T) {
	db := openTestDB(t)
	db.SaveCoordinate("Bonn", catalog.Coordinate{Lat: 1, Lon: 2})
	db.SaveCoordinate("Bonn", catalog.Coordinate{Lat: 50.73, Lon: 7.1})

	c, _ := db.LoadCoordinate("Bonn")
	if c == nil || c.Lat != 50.73 {
		t.Errorf("expected updated coordinate, got %+v", c)
	}
	n, _ := db.CountCoordinates()
	if n != 1 {
		t.Errorf("expected 1 coordinate, got %d", n)
	}
}
