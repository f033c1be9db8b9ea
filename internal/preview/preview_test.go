package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>On Printing</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>On Printing</h1>
<p>The printing press transformed how knowledge travelled across Europe. Workshops in Cologne,
Venice and Paris produced thousands of volumes within a few decades of the first presses.</p>
<p>Scholars have long debated how quickly these books reached readers outside the major trading
cities, and which networks of merchants carried them along the rivers and roads of the continent.</p>
</article>
</body></html>`

func TestGetExtractsAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if got := r.Header.Get("User-Agent"); got != "refexplorer-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "refexplorer-test")
	ex, err := f.Get(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ex == nil {
		t.Fatal("expected an excerpt")
	}
	if !strings.Contains(ex.Text, "printing press") {
		t.Errorf("excerpt missing body text: %q", ex.Text)
	}

	if _, err := f.Get(context.Background(), srv.URL+"/article"); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestGetSkipsFailedDomain(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "")
	if _, err := f.Get(context.Background(), srv.URL+"/a"); err == nil {
		t.Fatal("expected error for 404")
	}
	_, err := f.Get(context.Background(), srv.URL+"/b")
	if !errors.Is(err, ErrDomainSkipped) {
		t.Errorf("expected ErrDomainSkipped, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestGetShortPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Short.</p></body></html>`))
	}))
	defer srv.Close()

	ex, err := NewFetcher(5*time.Second, "").Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ex != nil {
		t.Errorf("expected no excerpt, got %q", ex.Text)
	}
}

func TestGetRejectsNonWebURL(t *testing.T) {
	f := NewFetcher(time.Second, "")
	for _, u := range []string{"", "zotero://select/items/ABC", "ftp://example.org/x"} {
		if _, err := f.Get(context.Background(), u); err == nil {
			t.Errorf("Get(%q) should fail", u)
		}
	}
}

func TestTruncate(t *testing.T) {
	s, cut := truncate("short text", 50)
	if cut || s != "short text" {
		t.Errorf("truncate short = %q, %v", s, cut)
	}

	long := strings.Repeat("word ", 40)
	s, cut = truncate(long, 52)
	if !cut {
		t.Fatal("expected truncation")
	}
	if !strings.HasSuffix(s, "…") {
		t.Errorf("missing ellipsis: %q", s)
	}
	if strings.HasSuffix(strings.TrimSuffix(s, "…"), " ") {
		t.Errorf("cut should drop the trailing space: %q", s)
	}
}
