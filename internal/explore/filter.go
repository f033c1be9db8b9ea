// Package explore holds the pure computations behind the dashboard: deriving
// filter defaults, applying the filter and projecting the filtered items into
// the timeline, map, network and topic views.
package explore

import (
	"sort"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// DeriveBounds returns the smallest range covering every dated item.
// ok is false when no item carries a usable date.
func DeriveBounds(items []catalog.Item) (catalog.YearRange, bool) {
	var rng catalog.YearRange
	found := false
	for _, it := range items {
		year, ok := it.Year()
		if !ok {
			continue
		}
		if !found {
			rng = catalog.YearRange{Min: year, Max: year}
			found = true
			continue
		}
		if year < rng.Min {
			rng.Min = year
		}
		if year > rng.Max {
			rng.Max = year
		}
	}
	return rng, found
}

// DeriveTypes returns a filter enabling every observed item type.
func DeriveTypes(items []catalog.Item) catalog.TypeFilter {
	types := make(catalog.TypeFilter)
	for _, it := range items {
		types[it.Type] = true
	}
	return types
}

// SortedTypes returns the filter's keys in lexical order.
func SortedTypes(types catalog.TypeFilter) []string {
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply keeps items whose type is enabled and whose year, if any, lies in rng.
// Undated items pass the range check. Input order is preserved.
func Apply(items []catalog.Item, rng catalog.YearRange, types catalog.TypeFilter) []catalog.Item {
	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if !types.Includes(it.Type) {
			continue
		}
		if year, ok := it.Year(); ok && !rng.Contains(year) {
			continue
		}
		out = append(out, it)
	}
	return out
}
