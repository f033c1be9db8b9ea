package geocode

import (
	"context"
	"log"
	"strings"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// Searcher looks up a place with a remote service.
type Searcher interface {
	Search(ctx context.Context, place string) (catalog.Coordinate, bool, error)
}

// GeoCache is the slice of the catalog cache the geocoder needs.
type GeoCache interface {
	LoadGeo(place string) (catalog.Coordinate, bool)
	StoreGeo(place string, coord catalog.Coordinate) error
}

// Geocoder resolves places cache-first and throttles remote lookups.
type Geocoder struct {
	searcher Searcher
	cache    GeoCache
	limiter  *rate.Limiter
	offline  bool
}

// Option configures a Geocoder.
type Option func(*Geocoder)

// WithRate limits remote lookups to perSecond requests. Zero or less disables throttling.
func WithRate(perSecond float64) Option {
	return func(g *Geocoder) {
		if perSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// Offline serves cached coordinates only and never contacts the searcher.
func Offline() Option {
	return func(g *Geocoder) { g.offline = true }
}

// New creates a geocoder. The default rate is one lookup per second.
func New(searcher Searcher, cache GeoCache, opts ...Option) *Geocoder {
	g := &Geocoder{
		searcher: searcher,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve returns the coordinate for place. A blank place, no match, or any
// failure yields ok=false; failures are logged, never returned.
func (g *Geocoder) Resolve(ctx context.Context, place string) (catalog.Coordinate, bool) {
	place = strings.TrimSpace(place)
	if place == "" {
		return catalog.Coordinate{}, false
	}

	if coord, ok := g.cache.LoadGeo(place); ok {
		return coord, true
	}
	if g.offline || g.searcher == nil {
		return catalog.Coordinate{}, false
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return catalog.Coordinate{}, false
	}

	coord, ok, err := g.searcher.Search(ctx, place)
	if err != nil {
		log.Printf("Geocoding %q failed: %v", place, err)
		return catalog.Coordinate{}, false
	}
	if !ok {
		log.Printf("No coordinates found for %q", place)
		return catalog.Coordinate{}, false
	}

	if err := g.cache.StoreGeo(place, coord); err != nil {
		log.Printf("Warning: %v", err)
	}
	return coord, true
}
