// Package dashboard coordinates loading the catalog and holds the filter,
// view and selection state that the projections are computed from.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
	"github.com/TobiSchelling/refexplorer/internal/explore"
)

var (
	// ErrNotLoaded is returned by operations that need items before any are loaded.
	ErrNotLoaded = errors.New("catalog not loaded")

	// ErrUnknownView is returned for view names other than the four lenses.
	ErrUnknownView = errors.New("unknown view")

	// ErrUnknownItem is returned when a selected key is not in the catalog.
	ErrUnknownItem = errors.New("unknown item")
)

// Fetcher retrieves the item list from the remote library.
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Item, error)
}

// ItemCache persists the item list between runs.
type ItemCache interface {
	Load() (*cache.Entry[[]catalog.Item], bool)
	Store(items []catalog.Item) error
	IsFresh(entry *cache.Entry[[]catalog.Item]) bool
}

// Dashboard owns the item set and the user's filter, view and selection.
// It is safe for concurrent use.
type Dashboard struct {
	fetcher  Fetcher
	cache    ItemCache
	resolver explore.Resolver
	workers  int
	now      func() time.Time

	mu    sync.RWMutex
	items []catalog.Item
	state State
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithWorkers bounds concurrent place resolutions for the map view.
func WithWorkers(n int) Option {
	return func(d *Dashboard) { d.workers = n }
}

// WithClock overrides the time source used to stamp remote fetches.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// New creates an empty dashboard showing the timeline.
func New(fetcher Fetcher, c ItemCache, resolver explore.Resolver, opts ...Option) *Dashboard {
	d := &Dashboard{
		fetcher:  fetcher,
		cache:    c,
		resolver: resolver,
		workers:  explore.DefaultWorkers,
		now:      time.Now,
		state: State{
			Status: StatusIdle,
			View:   ViewTimeline,
			Types:  catalog.TypeFilter{},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load serves fresh cached items when available and otherwise fetches and
// caches a new list. The cache is consulted once; a fresh entry means the
// remote library is never contacted.
func (d *Dashboard) Load(ctx context.Context) error {
	if entry, ok := d.cache.Load(); ok && d.cache.IsFresh(entry) {
		log.Printf("Using cached catalog (%d items, fetched %s)", len(entry.Payload), entry.FetchedAt.Format(time.RFC3339))
		d.setItems(entry.Payload, SourceCache, entry.FetchedAt)
		return nil
	}
	return d.fetch(ctx)
}

// Refresh fetches the item list regardless of cache freshness.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.fetch(ctx)
}

func (d *Dashboard) fetch(ctx context.Context) error {
	// A refresh keeps serving the current items until the new list arrives.
	d.mu.Lock()
	if d.state.Status != StatusReady {
		d.state.Status = StatusLoading
	}
	d.state.LoadError = ""
	d.mu.Unlock()

	items, err := d.fetcher.Fetch(ctx)
	if err != nil {
		log.Printf("Catalog fetch failed: %v", err)
		d.mu.Lock()
		if d.state.Status != StatusReady {
			d.state.Status = StatusError
		}
		d.state.LoadError = err.Error()
		d.mu.Unlock()
		return fmt.Errorf("fetching catalog: %w", err)
	}

	if err := d.cache.Store(items); err != nil {
		log.Printf("Warning: caching catalog failed: %v", err)
	}
	d.setItems(items, SourceRemote, d.now())
	return nil
}

// setItems installs a new item set and resets the filter to its defaults.
// The view is kept; the selection is kept if the item still exists.
func (d *Dashboard) setItems(items []catalog.Item, src Source, fetchedAt time.Time) {
	bounds, hasBounds := explore.DeriveBounds(items)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.items = items
	d.state.Status = StatusReady
	d.state.Source = src
	d.state.FetchedAt = &fetchedAt
	d.state.LoadError = ""
	d.state.Bounds = bounds
	d.state.HasBounds = hasBounds
	d.state.Range = bounds
	d.state.Types = explore.DeriveTypes(items)
	d.state.Query = ""
	if _, ok := explore.Resolve(items, d.state.Selected); !ok {
		d.state.Selected = ""
	}
	d.recount()
}

// recount refreshes the item counters. Callers hold mu.
func (d *Dashboard) recount() {
	d.state.Total = len(d.items)
	d.state.Visible = len(d.filteredLocked())
}

func (d *Dashboard) filteredLocked() []catalog.Item {
	out := explore.Apply(d.items, d.state.Range, d.state.Types)
	return explore.Search(out, d.state.Query)
}

// State returns a copy of the current state.
func (d *Dashboard) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.clone()
}

// Items returns the full, unfiltered item set.
func (d *Dashboard) Items() []catalog.Item {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.items
}

// Filtered returns the items passing the current filter and query.
func (d *Dashboard) Filtered() []catalog.Item {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filteredLocked()
}

// SetFilter applies a partial filter change. A bound supplied alone is
// clamped by the current other bound; two supplied bounds are taken as given,
// with max raised to min if they are inverted. Type keys that were never
// observed are ignored.
func (d *Dashboard) SetFilter(u FilterUpdate) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Status != StatusReady {
		return d.state.clone(), ErrNotLoaded
	}

	switch {
	case u.Min != nil && u.Max != nil:
		// Both bounds move together; an inverted pair collapses onto min.
		rng := catalog.YearRange{Min: *u.Min, Max: *u.Max}
		if rng.Max < rng.Min {
			rng.Max = rng.Min
		}
		d.state.Range = rng
	case u.Min != nil:
		d.state.Range = d.state.Range.WithMin(*u.Min)
	case u.Max != nil:
		d.state.Range = d.state.Range.WithMax(*u.Max)
	}
	for t, on := range u.Types {
		if _, ok := d.state.Types[t]; ok {
			d.state.Types[t] = on
		}
	}
	if u.Query != nil {
		d.state.Query = *u.Query
	}
	d.recount()
	return d.state.clone(), nil
}

// ResetFilter restores the derived bounds and enables every type.
func (d *Dashboard) ResetFilter() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Range = d.state.Bounds
	d.state.Types = explore.DeriveTypes(d.items)
	d.state.Query = ""
	d.recount()
	return d.state.clone()
}

// SetView switches the active lens.
func (d *Dashboard) SetView(name string) (State, error) {
	v, err := ParseView(name)
	if err != nil {
		return d.State(), err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.View = v
	return d.state.clone(), nil
}

// Select marks the item with key id as selected. Resolution runs against the
// unfiltered items so an item hidden by the filter can still be selected.
func (d *Dashboard) Select(id string) (catalog.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Status != StatusReady {
		return catalog.Item{}, ErrNotLoaded
	}
	it, ok := explore.Resolve(d.items, id)
	if !ok {
		return catalog.Item{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	d.state.Selected = it.Key
	return it, nil
}

// ClearSelection drops the selection.
func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Selected = ""
}

// Selection returns the selected item.
func (d *Dashboard) Selection() (catalog.Item, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return explore.Resolve(d.items, d.state.Selected)
}

// Item returns the item with key id from the unfiltered set.
func (d *Dashboard) Item(id string) (catalog.Item, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return explore.Resolve(d.items, id)
}

// Timeline projects the filtered items onto the timeline.
func (d *Dashboard) Timeline() []explore.TimelinePoint {
	return explore.Timeline(d.Filtered())
}

// Network projects the filtered items onto the creator graph.
func (d *Dashboard) Network() explore.Graph {
	return explore.Network(d.Filtered())
}

// Topics counts tags across the filtered items.
func (d *Dashboard) Topics() []explore.TagCount {
	return explore.Topics(d.Filtered())
}

// Markers streams place resolutions for the filtered items. Cancelling ctx,
// for example when the client switches view, stops the stream.
func (d *Dashboard) Markers(ctx context.Context) <-chan explore.MarkerEvent {
	return explore.Markers(ctx, d.Filtered(), d.resolver, d.workers)
}
