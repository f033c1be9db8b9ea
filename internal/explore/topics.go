package explore

import (
	"sort"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// TagCount is the number of items carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Topics counts tag occurrences across items. Results are in order of first
// appearance.
func Topics(items []catalog.Item) []TagCount {
	counts := []TagCount{}
	index := make(map[string]int)
	for _, it := range items {
		for _, tag := range it.Tags {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}
	return counts
}

// SortTagCounts returns a copy ordered by count descending, then tag.
func SortTagCounts(counts []TagCount) []TagCount {
	out := make([]TagCount, len(counts))
	copy(out, counts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
