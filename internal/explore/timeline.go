package explore

import (
	"time"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// TimelinePoint is one dated item on the timeline.
type TimelinePoint struct {
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
	ID    string    `json:"id"`
	Type  string    `json:"type"`
}

// Timeline returns one point per dated item, in input order.
// Items sharing a date are not merged.
func Timeline(items []catalog.Item) []TimelinePoint {
	points := make([]TimelinePoint, 0, len(items))
	for _, it := range items {
		date, ok := catalog.ParseDate(it.Date)
		if !ok {
			continue
		}
		points = append(points, TimelinePoint{
			Date:  date,
			Title: it.Title,
			ID:    it.Key,
			Type:  it.Type,
		})
	}
	return points
}
