// Package preview extracts a readable text excerpt from an item's URL for the
// detail panel.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

// MaxExcerpt is the longest excerpt returned, in runes.
const MaxExcerpt = 600

// minText is the shortest extracted text worth showing.
const minText = 100

// ErrDomainSkipped is returned for hosts that already failed during this run.
var ErrDomainSkipped = errors.New("domain previously failed")

// Excerpt is the readable start of a linked page.
type Excerpt struct {
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	Truncated bool      `json:"truncated"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fetcher downloads pages and extracts their main text. Results are kept in
// memory for the life of the process.
type Fetcher struct {
	client    *http.Client
	userAgent string

	mu            sync.Mutex
	excerpts      map[string]*Excerpt
	failedDomains map[string]struct{}
}

// NewFetcher creates a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:     userAgent,
		excerpts:      make(map[string]*Excerpt),
		failedDomains: make(map[string]struct{}),
	}
}

// Get returns the excerpt for pageURL. A nil excerpt with a nil error means
// the page had no extractable text. Hosts that answered with an HTTP error
// are not contacted again.
func (f *Fetcher) Get(ctx context.Context, pageURL string) (*Excerpt, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("not a web URL: %q", pageURL)
	}
	domain := strings.ToLower(u.Host)

	f.mu.Lock()
	if ex, ok := f.excerpts[pageURL]; ok {
		f.mu.Unlock()
		return ex, nil
	}
	if _, failed := f.failedDomains[domain]; failed {
		f.mu.Unlock()
		return nil, ErrDomainSkipped
	}
	f.mu.Unlock()

	text, err := f.fetchText(ctx, u)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) {
			f.mu.Lock()
			f.failedDomains[domain] = struct{}{}
			f.mu.Unlock()
			log.Printf("HTTP error for %s, skipping further previews from %s", pageURL, domain)
		}
		return nil, err
	}
	if text == "" {
		log.Printf("No extractable content from: %s", pageURL)
		return nil, nil
	}

	ex := &Excerpt{URL: pageURL, FetchedAt: time.Now()}
	ex.Text, ex.Truncated = truncate(text, MaxExcerpt)

	f.mu.Lock()
	f.excerpts[pageURL] = ex
	f.mu.Unlock()
	return ex, nil
}

func (f *Fetcher) fetchText(ctx context.Context, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) > minText {
		return text, nil
	}
	return "", nil
}

// truncate cuts s to at most n runes at a word boundary.
func truncate(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…", true
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s", e.code, http.StatusText(e.code))
}
