package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// scenarioItems is the three-item catalog used across the package tests.
func scenarioItems() []catalog.Item {
	return []catalog.Item{
		{Key: "A", Title: "Alpha", Date: "2020-05-01", Type: "document", Tags: []string{"x"}},
		{Key: "B", Title: "Beta", Date: "2021-01-01", Type: "letter", Tags: []string{"x"}},
		{Key: "C", Title: "Gamma", Type: "document", Tags: []string{"y"}},
	}
}

func keys(items []catalog.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func TestDeriveBounds(t *testing.T) {
	items := []catalog.Item{
		{Key: "1", Date: "2010"},
		{Key: "2", Date: "2015-06-01"},
		{Key: "3", Date: "2005-02"},
		{Key: "4"},
	}
	rng, ok := DeriveBounds(items)
	require.True(t, ok)
	assert.Equal(t, catalog.YearRange{Min: 2005, Max: 2015}, rng)
}

func TestDeriveBoundsNoDates(t *testing.T) {
	_, ok := DeriveBounds([]catalog.Item{{Key: "1"}, {Key: "2", Date: "undated"}})
	assert.False(t, ok)

	_, ok = DeriveBounds(nil)
	assert.False(t, ok)
}

func TestDeriveTypes(t *testing.T) {
	types := DeriveTypes(scenarioItems())
	assert.Equal(t, catalog.TypeFilter{"document": true, "letter": true}, types)
	assert.Equal(t, []string{"document", "letter"}, SortedTypes(types))
}

func TestApplyIdempotent(t *testing.T) {
	items := scenarioItems()
	rng := catalog.YearRange{Min: 2020, Max: 2020}
	types := catalog.TypeFilter{"document": true, "letter": true}

	once := Apply(items, rng, types)
	twice := Apply(once, rng, types)
	assert.Equal(t, once, twice)
}

func TestApplyRangeMembership(t *testing.T) {
	items := []catalog.Item{
		{Key: "early", Date: "1999-12-31", Type: "book"},
		{Key: "low", Date: "2000", Type: "book"},
		{Key: "mid", Date: "ca. 2005", Type: "book"},
		{Key: "high", Date: "2010-01-01", Type: "book"},
		{Key: "late", Date: "2011", Type: "book"},
		{Key: "undated", Type: "book"},
		{Key: "garbled", Date: "n.d.", Type: "book"},
	}
	types := catalog.TypeFilter{"book": true}

	got := Apply(items, catalog.YearRange{Min: 2000, Max: 2010}, types)
	assert.Equal(t, []string{"low", "mid", "high", "undated", "garbled"}, keys(got))

	// Undated items survive even an empty-looking range.
	got = Apply(items, catalog.YearRange{Min: 3000, Max: 3000}, types)
	assert.Equal(t, []string{"undated", "garbled"}, keys(got))
}

func TestApplyMissingTypeExcluded(t *testing.T) {
	items := []catalog.Item{{Key: "1", Type: "map"}, {Key: "2", Type: "book"}}
	got := Apply(items, catalog.YearRange{Min: 0, Max: 9999}, catalog.TypeFilter{"book": true})
	assert.Equal(t, []string{"2"}, keys(got))
}

func TestEndToEndScenario(t *testing.T) {
	items := scenarioItems()

	rng, ok := DeriveBounds(items)
	require.True(t, ok)
	assert.Equal(t, catalog.YearRange{Min: 2020, Max: 2021}, rng)
	assert.Equal(t, catalog.TypeFilter{"document": true, "letter": true}, DeriveTypes(items))

	filtered := Apply(items, catalog.YearRange{Min: 2020, Max: 2021}, catalog.TypeFilter{"document": true, "letter": false})
	assert.Equal(t, []string{"A", "C"}, keys(filtered))

	assert.Equal(t, []TagCount{{Tag: "x", Count: 1}, {Tag: "y", Count: 1}}, Topics(filtered))
}
