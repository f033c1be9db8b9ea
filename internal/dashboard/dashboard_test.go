package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
	"github.com/TobiSchelling/refexplorer/internal/database"
	"github.com/TobiSchelling/refexplorer/internal/explore"
)

type fakeFetcher struct {
	items []catalog.Item
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]catalog.Item, error) {
	f.calls++
	return f.items, f.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func testItems() []catalog.Item {
	return []catalog.Item{
		{Key: "A", Title: "Alpha", Date: "2020-05-01", Type: "document", Place: "Cologne", Tags: []string{"x"},
			Creators: []catalog.Creator{{LastName: "Smith"}}},
		{Key: "B", Title: "Beta", Date: "2021-01-01", Type: "letter", Place: "Paris", Tags: []string{"x"},
			Creators: []catalog.Creator{{LastName: "Smith"}}},
		{Key: "C", Title: "Gamma", Type: "document", Tags: []string{"y"}},
	}
}

func newCache(t *testing.T, clk *clock) *cache.Cache {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return cache.New(db, 24*time.Hour, cache.WithClock(clk.Now))
}

var noResolver = explore.ResolverFunc(func(ctx context.Context, place string) (catalog.Coordinate, bool) {
	return catalog.Coordinate{}, false
})

func loaded(t *testing.T) *Dashboard {
	t.Helper()
	clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
	d := New(&fakeFetcher{items: testItems()}, newCache(t, clk), noResolver)
	require.NoError(t, d.Load(context.Background()))
	return d
}

func TestLoadFreshCacheSkipsFetch(t *testing.T) {
	clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
	c := newCache(t, clk)
	require.NoError(t, c.Store(testItems()))

	f := &fakeFetcher{err: errors.New("network must not be used")}
	d := New(f, c, noResolver)
	require.NoError(t, d.Load(context.Background()))

	assert.Zero(t, f.calls)
	st := d.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, SourceCache, st.Source)
	assert.Equal(t, 3, st.Total)
}

func TestLoadStaleCacheFetchesAndStores(t *testing.T) {
	clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
	c := newCache(t, clk)
	require.NoError(t, c.Store([]catalog.Item{{Key: "OLD", Type: "book"}}))
	clk.now = clk.now.Add(25 * time.Hour)

	f := &fakeFetcher{items: testItems()}
	d := New(f, c, noResolver, WithClock(clk.Now))
	require.NoError(t, d.Load(context.Background()))

	assert.Equal(t, 1, f.calls)
	st := d.State()
	assert.Equal(t, SourceRemote, st.Source)
	require.NotNil(t, st.FetchedAt)
	assert.Equal(t, clk.now, *st.FetchedAt)

	entry, ok := c.Load()
	require.True(t, ok)
	assert.Len(t, entry.Payload, 3)
	assert.True(t, c.IsFresh(entry))
}

func TestLoadFetchErrorRecorded(t *testing.T) {
	clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
	f := &fakeFetcher{err: errors.New("boom")}
	d := New(f, newCache(t, clk), noResolver)

	err := d.Load(context.Background())
	require.Error(t, err)
	st := d.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "boom", st.LoadError)
	assert.Equal(t, 1, f.calls, "no retry")
	assert.Nil(t, st.FetchedAt)
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "fetchedAt")

	_, err = d.SetFilter(FilterUpdate{})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestRefreshFailureKeepsItems(t *testing.T) {
	clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
	f := &fakeFetcher{items: testItems()}
	d := New(f, newCache(t, clk), noResolver)
	require.NoError(t, d.Load(context.Background()))

	f.err = errors.New("offline")
	require.Error(t, d.Refresh(context.Background()))

	st := d.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "offline", st.LoadError)
	assert.Equal(t, 3, st.Total)
}

func TestDefaultsDerivedOnLoad(t *testing.T) {
	st := loaded(t).State()
	assert.True(t, st.HasBounds)
	assert.Equal(t, catalog.YearRange{Min: 2020, Max: 2021}, st.Bounds)
	assert.Equal(t, st.Bounds, st.Range)
	assert.Equal(t, catalog.TypeFilter{"document": true, "letter": true}, st.Types)
	assert.Equal(t, ViewTimeline, st.View)
	assert.Equal(t, 3, st.Visible)
}

func TestSetFilter(t *testing.T) {
	d := loaded(t)

	st, err := d.SetFilter(FilterUpdate{Types: map[string]bool{"letter": false, "unknown": true}})
	require.NoError(t, err)
	assert.Equal(t, catalog.TypeFilter{"document": true, "letter": false}, st.Types)
	assert.Equal(t, 2, st.Visible)

	var ids []string
	for _, it := range d.Filtered() {
		ids = append(ids, it.Key)
	}
	assert.Equal(t, []string{"A", "C"}, ids)
	assert.Equal(t, []explore.TagCount{{Tag: "x", Count: 1}, {Tag: "y", Count: 1}}, d.Topics())
}

func TestSetFilterClampsBounds(t *testing.T) {
	d := loaded(t)

	min := 2030
	st, err := d.SetFilter(FilterUpdate{Min: &min})
	require.NoError(t, err)
	assert.Equal(t, catalog.YearRange{Min: 2021, Max: 2021}, st.Range)

	max := 1900
	st, err = d.SetFilter(FilterUpdate{Max: &max})
	require.NoError(t, err)
	assert.Equal(t, catalog.YearRange{Min: 2021, Max: 2021}, st.Range)

	// Bounds outside the derived range are allowed.
	min = 1500
	st, err = d.SetFilter(FilterUpdate{Min: &min})
	require.NoError(t, err)
	assert.Equal(t, catalog.YearRange{Min: 1500, Max: 2021}, st.Range)

	reset := d.ResetFilter()
	assert.Equal(t, reset.Bounds, reset.Range)
}

func TestSetFilterMovesBothBounds(t *testing.T) {
	d := loaded(t)
	year := func(y int) *int { return &y }

	st, err := d.SetFilter(FilterUpdate{Min: year(2025), Max: year(2030)})
	require.NoError(t, err)
	assert.Equal(t, catalog.YearRange{Min: 2025, Max: 2030}, st.Range)
	var keys []string
	for _, it := range d.Filtered() {
		keys = append(keys, it.Key)
	}
	assert.Equal(t, []string{"C"}, keys, "only the undated item passes a window above every year")

	st, err = d.SetFilter(FilterUpdate{Min: year(1990), Max: year(1995)})
	require.NoError(t, err)
	assert.Equal(t, catalog.YearRange{Min: 1990, Max: 1995}, st.Range)
	assert.Equal(t, 1, st.Visible)

	st, err = d.SetFilter(FilterUpdate{Min: year(2021), Max: year(2020)})
	require.NoError(t, err)
	assert.Equal(t, catalog.YearRange{Min: 2021, Max: 2021}, st.Range)
}

func TestSetFilterQuery(t *testing.T) {
	d := loaded(t)
	q := "gamma"
	st, err := d.SetFilter(FilterUpdate{Query: &q})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Visible)
}

func TestSetView(t *testing.T) {
	d := loaded(t)

	st, err := d.SetView("Network")
	require.NoError(t, err)
	assert.Equal(t, ViewNetwork, st.View)

	_, err = d.SetView("chart")
	assert.ErrorIs(t, err, ErrUnknownView)
	assert.Equal(t, ViewNetwork, d.State().View)
}

func TestSelectUsesUnfilteredItems(t *testing.T) {
	d := loaded(t)
	_, err := d.SetFilter(FilterUpdate{Types: map[string]bool{"letter": false}})
	require.NoError(t, err)

	it, err := d.Select("B")
	require.NoError(t, err)
	assert.Equal(t, "Beta", it.Title)

	sel, ok := d.Selection()
	require.True(t, ok)
	assert.Equal(t, "B", sel.Key)

	_, err = d.Select("nope")
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Equal(t, "B", d.State().Selected)

	d.ClearSelection()
	_, ok = d.Selection()
	assert.False(t, ok)
}

func TestProjectionsFollowFilter(t *testing.T) {
	d := loaded(t)
	assert.Len(t, d.Timeline(), 2)

	g := d.Network()
	assert.Len(t, g.Edges, 2)

	_, err := d.SetFilter(FilterUpdate{Types: map[string]bool{"letter": false}})
	require.NoError(t, err)
	assert.Len(t, d.Timeline(), 1)
	assert.Len(t, d.Network().Edges, 1)
}

func TestMarkersUseResolver(t *testing.T) {
	clk := &clock{now: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)}
	resolver := explore.ResolverFunc(func(ctx context.Context, place string) (catalog.Coordinate, bool) {
		if place == "Cologne" {
			return catalog.Coordinate{Lat: 50.94, Lon: 6.96}, true
		}
		return catalog.Coordinate{}, false
	})
	d := New(&fakeFetcher{items: testItems()}, newCache(t, clk), resolver, WithWorkers(1))
	require.NoError(t, d.Load(context.Background()))

	markers := explore.CollectMarkers(d.Markers(context.Background()))
	require.Len(t, markers, 1)
	assert.Equal(t, "A", markers[0].ID)
}
