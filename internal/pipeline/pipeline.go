package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/cache"
	"github.com/TobiSchelling/refexplorer/internal/catalog"
	"github.com/TobiSchelling/refexplorer/internal/config"
	"github.com/TobiSchelling/refexplorer/internal/dashboard"
	"github.com/TobiSchelling/refexplorer/internal/geocode"
	"github.com/TobiSchelling/refexplorer/internal/preview"
	"github.com/TobiSchelling/refexplorer/internal/zotero"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a sync run.
type Result struct {
	Items  []catalog.Item
	Steps  []StepResult
	ByType map[string]int
}

// Pipeline wires the catalog client, cache and geocoder from config and runs
// the fetch → cache → geocode sync.
type Pipeline struct {
	cfg      *config.Config
	cache    *cache.Cache
	client   *zotero.Client
	geocoder *geocode.Geocoder
}

// New creates a new pipeline over store.
func New(cfg *config.Config, store cache.Store) *Pipeline {
	cat := cfg.Catalog
	client := zotero.NewClient(zotero.Options{
		BaseURL:     cat.BaseURL,
		LibraryType: cat.LibraryType,
		LibraryID:   cat.LibraryID,
		APIKeyEnv:   cat.APIKeyEnv,
		Limit:       cat.Limit,
		Format:      zotero.Format(cat.Format),
		Timeout:     cat.Timeout,
	})

	c := cache.New(store, cfg.Cache.TTL)

	geo := cfg.Geocoder
	opts := []geocode.Option{geocode.WithRate(geo.RatePerSecond)}
	if !geo.Enabled {
		opts = append(opts, geocode.Offline())
	}
	geocoder := geocode.New(geocode.NewNominatim(geo.URL, geo.UserAgent, geo.Timeout), c, opts...)

	return &Pipeline{
		cfg:      cfg,
		cache:    c,
		client:   client,
		geocoder: geocoder,
	}
}

// Cache returns the catalog cache.
func (p *Pipeline) Cache() *cache.Cache {
	return p.cache
}

// Geocoder returns the cache-first geocoder.
func (p *Pipeline) Geocoder() *geocode.Geocoder {
	return p.geocoder
}

// Client returns the catalog client.
func (p *Pipeline) Client() *zotero.Client {
	return p.client
}

// Dashboard creates a dashboard backed by this pipeline's client, cache and geocoder.
func (p *Pipeline) Dashboard() *dashboard.Dashboard {
	return dashboard.New(p.client, p.cache, p.geocoder, dashboard.WithWorkers(p.cfg.Geocoder.Workers))
}

// Preview returns a link preview fetcher, or nil when previews are disabled.
func (p *Pipeline) Preview() *preview.Fetcher {
	if !p.cfg.Preview.Enabled {
		return nil
	}
	return preview.NewFetcher(p.cfg.Preview.Timeout, p.cfg.Geocoder.UserAgent)
}

// Run fetches the catalog, stores it and, when withGeocode is set, resolves
// every distinct place so the map view starts from a warm cache.
func (p *Pipeline) Run(ctx context.Context, withGeocode bool) *Result {
	r := &Result{}

	step, items := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Items = items
	r.ByType = countByType(items)

	step = p.runStore(items)
	r.Steps = append(r.Steps, step)

	if withGeocode {
		step = p.runGeocode(ctx, items)
		r.Steps = append(r.Steps, step)
	}
	return r
}

// DryRun reports what a sync would do without contacting any service.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] Would request %s", p.client.ItemsURL()),
	})

	entry, ok := p.cache.Load()
	switch {
	case !ok:
		r.Steps = append(r.Steps, StepResult{Name: "Cache", Summary: "[dry-run] No cached catalog"})
	case p.cache.IsFresh(entry):
		r.Steps = append(r.Steps, StepResult{
			Name:    "Cache",
			Summary: fmt.Sprintf("[dry-run] Cached catalog is fresh (%d items, %s old)", len(entry.Payload), entry.Age(time.Now()).Round(time.Minute)),
		})
	default:
		r.Steps = append(r.Steps, StepResult{
			Name:    "Cache",
			Summary: fmt.Sprintf("[dry-run] Cached catalog is stale (%d items); would be replaced", len(entry.Payload)),
		})
	}

	if ok {
		places := DistinctPlaces(entry.Payload)
		missing := 0
		for _, place := range places {
			if _, hit := p.cache.LoadGeo(place); !hit {
				missing++
			}
		}
		r.Steps = append(r.Steps, StepResult{
			Name:    "Geocode",
			Summary: fmt.Sprintf("[dry-run] %d of %d places need geocoding", missing, len(places)),
		})
	}
	return r
}

func (p *Pipeline) runFetch(ctx context.Context) (StepResult, []catalog.Item) {
	log.Println("Step 1: Fetching catalog...")
	items, err := p.client.Fetch(ctx)
	if err != nil {
		return StepResult{Name: "Fetch", Err: err}, nil
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d items", len(items)),
	}, items
}

func (p *Pipeline) runStore(items []catalog.Item) StepResult {
	log.Println("Step 2: Caching catalog...")
	if err := p.cache.Store(items); err != nil {
		return StepResult{Name: "Cache", Err: err}
	}
	return StepResult{
		Name:    "Cache",
		Summary: fmt.Sprintf("Cached %d items (fresh for %s)", len(items), p.cache.TTL()),
	}
}

func (p *Pipeline) runGeocode(ctx context.Context, items []catalog.Item) StepResult {
	log.Println("Step 3: Geocoding places...")
	places := DistinctPlaces(items)
	var cached, resolved, failed int
	for _, place := range places {
		if ctx.Err() != nil {
			return StepResult{Name: "Geocode", Err: ctx.Err()}
		}
		if _, ok := p.cache.LoadGeo(place); ok {
			cached++
			continue
		}
		if _, ok := p.geocoder.Resolve(ctx, place); ok {
			resolved++
		} else {
			failed++
		}
	}
	return StepResult{
		Name:    "Geocode",
		Summary: fmt.Sprintf("%d places: %d cached, %d resolved, %d unresolved", len(places), cached, resolved, failed),
	}
}

// DistinctPlaces returns the non-blank places of items in first-seen order.
func DistinctPlaces(items []catalog.Item) []string {
	seen := make(map[string]struct{})
	var places []string
	for _, it := range items {
		place := strings.TrimSpace(it.Place)
		if place == "" {
			continue
		}
		if _, ok := seen[place]; ok {
			continue
		}
		seen[place] = struct{}{}
		places = append(places, place)
	}
	return places
}

func countByType(items []catalog.Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.Type]++
	}
	return counts
}

// TypeCount is one row of a per-type summary.
type TypeCount struct {
	Type  string
	Count int
}

// SortedTypeCounts orders a per-type summary by count descending, then name.
func SortedTypeCounts(counts map[string]int) []TypeCount {
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
