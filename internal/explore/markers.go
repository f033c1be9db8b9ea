package explore

import (
	"context"
	"strings"
	"sync"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// DefaultWorkers bounds concurrent place resolutions.
const DefaultWorkers = 4

// Resolver turns a place name into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, place string) (catalog.Coordinate, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, place string) (catalog.Coordinate, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, place string) (catalog.Coordinate, bool) {
	return f(ctx, place)
}

// Marker is an item placed on the map.
type Marker struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Place      string             `json:"place"`
	Coordinate catalog.Coordinate `json:"coordinate"`
}

// MarkerEvent reports the outcome of resolving one item's place.
// When Resolved is false the marker carries no coordinate and is not drawn.
type MarkerEvent struct {
	Marker
	Resolved bool `json:"resolved"`
}

// Placed returns the items that carry a non-blank place.
func Placed(items []catalog.Item) []catalog.Item {
	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Place) != "" {
			out = append(out, it)
		}
	}
	return out
}

// Markers resolves the place of every placed item concurrently and streams
// one event per item in completion order. The channel is closed once every
// item is done or ctx is cancelled; after cancellation no further events are
// sent. workers <= 0 uses DefaultWorkers.
func Markers(ctx context.Context, items []catalog.Item, r Resolver, workers int) <-chan MarkerEvent {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	placed := Placed(items)
	out := make(chan MarkerEvent)

	jobs := make(chan catalog.Item)
	go func() {
		defer close(jobs)
		for _, it := range placed {
			select {
			case jobs <- it:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers && i < len(placed); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				ev := MarkerEvent{Marker: Marker{ID: it.Key, Title: it.Title, Place: it.Place}}
				if coord, ok := r.Resolve(ctx, it.Place); ok {
					ev.Coordinate = coord
					ev.Resolved = true
				}
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// CollectMarkers drains events and returns the resolved markers in arrival order.
func CollectMarkers(events <-chan MarkerEvent) []Marker {
	markers := make([]Marker, 0)
	for ev := range events {
		if ev.Resolved {
			markers = append(markers, ev.Marker)
		}
	}
	return markers
}
