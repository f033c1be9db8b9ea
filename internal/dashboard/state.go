package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// View is one of the four lenses on the filtered items.
type View string

const (
	ViewTimeline View = "timeline"
	ViewMap      View = "map"
	ViewNetwork  View = "network"
	ViewTopics   View = "topics"
)

// Views lists every view in display order.
var Views = []View{ViewTimeline, ViewMap, ViewNetwork, ViewTopics}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Status is the load state of the item set.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Source tells where the current items came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// State is the dashboard's user-visible state. Values returned by Dashboard
// methods are copies and safe to keep.
type State struct {
	Status    Status    `json:"status"`
	Source    Source    `json:"source,omitempty"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	LoadError string    `json:"error,omitempty"`

	// Bounds is derived from the items and never changes until the next load.
	Bounds    catalog.YearRange  `json:"bounds"`
	HasBounds bool               `json:"hasBounds"`
	Range     catalog.YearRange  `json:"range"`
	Types     catalog.TypeFilter `json:"types"`
	Query     string             `json:"query"`
	View      View               `json:"view"`
	Selected  string             `json:"selected,omitempty"`

	Total   int `json:"total"`
	Visible int `json:"visible"`
}

func (s State) clone() State {
	s.Types = s.Types.Clone()
	if s.FetchedAt != nil {
		at := *s.FetchedAt
		s.FetchedAt = &at
	}
	return s
}

// FilterUpdate changes part of the filter. Nil fields are left as they are.
type FilterUpdate struct {
	Min   *int            `json:"min,omitempty"`
	Max   *int            `json:"max,omitempty"`
	Types map[string]bool `json:"types,omitempty"`
	Query *string         `json:"query,omitempty"`
}
