package explore

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// Search keeps items whose title or creator names fuzzily contain query.
// Matching is case-insensitive and ignores diacritics. A blank query returns
// items unchanged.
func Search(items []catalog.Item, query string) []catalog.Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if matches(it, query) {
			out = append(out, it)
		}
	}
	return out
}

func matches(it catalog.Item, query string) bool {
	if fuzzy.MatchNormalizedFold(query, it.Title) {
		return true
	}
	for _, c := range it.Creators {
		if name := c.FullName(); name != "" && fuzzy.MatchNormalizedFold(query, name) {
			return true
		}
	}
	return false
}

// Score ranks how well title matches query; lower is better.
// Used to order suggestions, never to filter.
func Score(title, query string) int {
	title = strings.ToLower(title)
	query = strings.ToLower(strings.TrimSpace(query))
	switch {
	case title == query:
		return 0
	case strings.HasPrefix(title, query):
		return 10
	case strings.Contains(title, query):
		return 50
	}
	return 100 + fuzzy.LevenshteinDistance(query, title)
}
