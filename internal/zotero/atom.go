package zotero

import (
	"encoding/json"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// parseAtom reads a format=atom response. Entries requested with content=json
// carry the full item data; otherwise the zapi extensions, authors and
// categories are used.
func parseAtom(r io.Reader) ([]catalog.Item, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := parseEntry(entry)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func parseEntry(entry *gofeed.Item) (catalog.Item, bool) {
	key := zapiValue(entry.Extensions, "key")
	if key == "" {
		key = keyFromID(entry.GUID)
	}
	if key == "" {
		return catalog.Item{}, false
	}
	version, _ := strconv.Atoi(zapiValue(entry.Extensions, "version"))

	content := strings.TrimSpace(entry.Content)
	if strings.HasPrefix(content, "{") {
		var d itemData
		if err := json.Unmarshal([]byte(content), &d); err == nil {
			return toItem(key, version, d), true
		}
		log.Printf("Atom entry %s has unreadable JSON content, using feed fields", key)
	}

	item := catalog.Item{
		Key:     key,
		Version: version,
		Type:    zapiValue(entry.Extensions, "itemType"),
		Title:   strings.TrimSpace(entry.Title),
	}
	// <published> is when the record was added, not the item date, so the
	// item stays undated.
	for _, a := range entry.Authors {
		if a == nil || strings.TrimSpace(a.Name) == "" {
			continue
		}
		item.Creators = append(item.Creators, catalog.Creator{CreatorType: "author", Name: strings.TrimSpace(a.Name)})
	}
	item.Tags = catalog.DedupTags(entry.Categories)
	for _, l := range entry.Links {
		if strings.HasPrefix(l, "http") && !strings.Contains(l, "api.zotero.org") {
			item.URL = l
			break
		}
	}
	return item, true
}

func zapiValue(exts ext.Extensions, name string) string {
	if exts == nil {
		return ""
	}
	values := exts["zapi"][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

// keyFromID extracts the item key from ids like http://zotero.org/groups/1/items/ABCD1234.
func keyFromID(id string) string {
	idx := strings.LastIndex(id, "/items/")
	if idx < 0 {
		return ""
	}
	return strings.Trim(id[idx+len("/items/"):], "/")
}
