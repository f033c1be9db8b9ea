package zotero

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// itemRecord is one element of the JSON items array.
type itemRecord struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    itemData `json:"data"`
}

type itemData struct {
	Key          string       `json:"key"`
	Version      int          `json:"version"`
	ItemType     string       `json:"itemType"`
	Title        string       `json:"title"`
	CaseName     string       `json:"caseName"`
	Subject      string       `json:"subject"`
	NameOfAct    string       `json:"nameOfAct"`
	Date         string       `json:"date"`
	Place        string       `json:"place"`
	URL          string       `json:"url"`
	AbstractNote string       `json:"abstractNote"`
	Creators     []creatorDTO `json:"creators"`
	Tags         []tagDTO     `json:"tags"`
}

type creatorDTO struct {
	CreatorType string `json:"creatorType"`
	Name        string `json:"name"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type tagDTO struct {
	Tag string `json:"tag"`
}

func parseJSON(r io.Reader) ([]catalog.Item, error) {
	var records []itemRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	items := make([]catalog.Item, 0, len(records))
	for _, rec := range records {
		key := rec.Key
		if key == "" {
			key = rec.Data.Key
		}
		if key == "" {
			continue
		}
		version := rec.Version
		if version == 0 {
			version = rec.Data.Version
		}
		items = append(items, toItem(key, version, rec.Data))
	}
	return items, nil
}

func toItem(key string, version int, d itemData) catalog.Item {
	item := catalog.Item{
		Key:      key,
		Version:  version,
		Type:     d.ItemType,
		Title:    firstNonEmpty(d.Title, d.CaseName, d.Subject, d.NameOfAct),
		Date:     strings.TrimSpace(d.Date),
		Place:    strings.TrimSpace(d.Place),
		URL:      d.URL,
		Abstract: d.AbstractNote,
	}
	for _, c := range d.Creators {
		item.Creators = append(item.Creators, catalog.Creator{
			CreatorType: c.CreatorType,
			Name:        strings.TrimSpace(c.Name),
			FirstName:   strings.TrimSpace(c.FirstName),
			LastName:    strings.TrimSpace(c.LastName),
		})
	}
	tags := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, t.Tag)
	}
	item.Tags = catalog.DedupTags(tags)
	return item
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
