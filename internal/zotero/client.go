// Package zotero fetches catalog items from the Zotero Web API.
package zotero

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
)

const (
	// DefaultBaseURL is the public Zotero API endpoint.
	DefaultBaseURL = "https://api.zotero.org"

	// MaxLimit is the largest page the API returns; nothing past the first page is fetched.
	MaxLimit = 100

	apiVersion = "3"
)

// Format selects the response representation requested from the API.
type Format string

const (
	FormatJSON Format = "json"
	FormatAtom Format = "atom"
)

// ErrUnauthorized is returned when the API rejects the configured key.
var ErrUnauthorized = errors.New("zotero API key rejected")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("zotero API returned %d", e.Code)
	}
	return fmt.Sprintf("zotero API returned %d: %s", e.Code, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	LibraryType string // "groups" or "users"
	LibraryID   string
	APIKeyEnv   string
	Limit       int
	Format      Format
	Timeout     time.Duration
}

// Client fetches one page of items from a Zotero library.
type Client struct {
	baseURL     string
	libraryType string
	libraryID   string
	apiKey      string
	limit       int
	format      Format
	client      *http.Client
}

// NewClient creates a client. The API key is read from the environment
// variable named by opts.APIKeyEnv; public libraries work without one.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.LibraryType == "" {
		opts.LibraryType = "groups"
	}
	if opts.Limit <= 0 || opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	var apiKey string
	if opts.APIKeyEnv != "" {
		apiKey = os.Getenv(opts.APIKeyEnv)
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		libraryType: opts.LibraryType,
		libraryID:   opts.LibraryID,
		apiKey:      apiKey,
		limit:       opts.Limit,
		format:      opts.Format,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

// WithAPIKey sets the key directly, bypassing the environment.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = key
	return c
}

// HasAPIKey reports whether a key will be sent.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// ItemsURL returns the URL of the single page that Fetch requests.
func (c *Client) ItemsURL() string {
	params := url.Values{"limit": {strconv.Itoa(c.limit)}}
	if c.format == FormatAtom {
		params.Set("format", "atom")
		params.Set("content", "json")
	} else {
		params.Set("format", "json")
	}
	return fmt.Sprintf("%s/%s/%s/items?%s", c.baseURL, c.libraryType, url.PathEscape(c.libraryID), params.Encode())
}

// Fetch issues one request for up to limit items. It does not paginate or retry.
func (c *Client) Fetch(ctx context.Context) ([]catalog.Item, error) {
	if c.libraryID == "" {
		return nil, fmt.Errorf("no library id configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ItemsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", apiVersion)
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zotero request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var items []catalog.Item
	if c.format == FormatAtom {
		items, err = parseAtom(resp.Body)
	} else {
		items, err = parseJSON(resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if total := resp.Header.Get("Total-Results"); total != "" {
		if n, err := strconv.Atoi(total); err == nil && n > len(items) {
			log.Printf("Library holds %d items; only the first %d are fetched", n, len(items))
		}
	}
	log.Printf("Fetched %d items from %s/%s", len(items), c.libraryType, c.libraryID)
	return items, nil
}
