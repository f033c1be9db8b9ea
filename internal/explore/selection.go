package explore

import "github.com/TobiSchelling/refexplorer/internal/catalog"

// Resolve finds the item with key id. Callers pass the unfiltered item set so
// a selection survives filter changes.
func Resolve(items []catalog.Item, id string) (catalog.Item, bool) {
	if id == "" {
		return catalog.Item{}, false
	}
	for _, it := range items {
		if it.Key == id {
			return it, true
		}
	}
	return catalog.Item{}, false
}
