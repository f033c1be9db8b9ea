// Package geocode resolves free-text place names to coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

// DefaultURL is the public Nominatim instance.
const DefaultURL = "https://nominatim.openstreetmap.org"

// Nominatim queries the Nominatim search endpoint.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim creates a client for baseURL. Nominatim's usage policy requires
// an identifying User-Agent.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns the first match for place. ok is false when nothing matched.
func (n *Nominatim) Search(ctx context.Context, place string) (catalog.Coordinate, bool, error) {
	u := fmt.Sprintf("%s/search?%s", n.baseURL, url.Values{
		"format": {"json"},
		"q":      {place},
		"limit":  {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return catalog.Coordinate{}, false, fmt.Errorf("creating request: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return catalog.Coordinate{}, false, fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog.Coordinate{}, false, fmt.Errorf("nominatim returned %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return catalog.Coordinate{}, false, fmt.Errorf("decoding nominatim response: %w", err)
	}
	if len(results) == 0 {
		return catalog.Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return catalog.Coordinate{}, false, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return catalog.Coordinate{}, false, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}
	return catalog.Coordinate{Lat: lat, Lon: lon}, true, nil
}
