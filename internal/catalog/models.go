package catalog

import "strings"

// Item is a single reference from the remote library.
type Item struct {
	Key      string    `json:"key"`
	Version  int       `json:"version,omitempty"`
	Type     string    `json:"itemType"`
	Title    string    `json:"title,omitempty"`
	Date     string    `json:"date,omitempty"`
	Place    string    `json:"place,omitempty"`
	URL      string    `json:"url,omitempty"`
	Abstract string    `json:"abstractNote,omitempty"`
	Creators []Creator `json:"creators,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// Creator is an author, editor or other contributor of an item.
// Zotero stores either a single Name or a FirstName/LastName pair.
type Creator struct {
	CreatorType string `json:"creatorType,omitempty"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

// DisplayName returns the single-field name if set, otherwise the last name.
// Two creators with the same display name are treated as the same person.
func (c Creator) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.LastName
}

// FullName returns "First Last" for two-field creators.
func (c Creator) FullName() string {
	if c.Name != "" {
		return c.Name
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Year returns the parsed year of the item's date.
func (it Item) Year() (int, bool) {
	return ParseYear(it.Date)
}

// HasDate reports whether the item carries a usable date.
func (it Item) HasDate() bool {
	_, ok := it.Year()
	return ok
}

// Coordinate is a resolved latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// YearRange is an inclusive range of years.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether year lies within the range, bounds included.
func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

// WithMin sets the lower bound, clamped to the current upper bound.
func (r YearRange) WithMin(min int) YearRange {
	if min > r.Max {
		min = r.Max
	}
	r.Min = min
	return r
}

// WithMax sets the upper bound, clamped to the current lower bound.
func (r YearRange) WithMax(max int) YearRange {
	if max < r.Min {
		max = r.Min
	}
	r.Max = max
	return r
}

// TypeFilter maps an item type to whether it is included.
type TypeFilter map[string]bool

// Includes reports whether itemType is present and enabled.
func (f TypeFilter) Includes(itemType string) bool {
	return f[itemType]
}

// Clone returns an independent copy of the filter.
func (f TypeFilter) Clone() TypeFilter {
	out := make(TypeFilter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// DedupTags drops repeated tags and blank labels, keeping first-seen order.
func DedupTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
