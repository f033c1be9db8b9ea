package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/refexplorer/internal/dashboard"
	"github.com/TobiSchelling/refexplorer/internal/explore"
	"github.com/TobiSchelling/refexplorer/internal/preview"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the dashboard.
type Server struct {
	dash    *dashboard.Dashboard
	preview *preview.Fetcher
	page    *template.Template
	partial *template.Template
	mux     *http.ServeMux
}

// New creates a new Server. pv may be nil to disable link previews.
func New(d *dashboard.Dashboard, pv *preview.Fetcher) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"creators": creatorLine,
		"year": func(date string) string {
			if t, ok := parseYear(date); ok {
				return t
			}
			return ""
		},
	}

	// The dashboard is the only full page; it fills the blocks of base.html.
	page, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}

	// The detail panel is a fragment loaded into the page, so it has no base.
	partial, err := template.New("item.html").Funcs(funcMap).ParseFS(templateFS, "templates/item.html")
	if err != nil {
		return nil, fmt.Errorf("parsing item template: %w", err)
	}

	s := &Server{dash: d, preview: pv, page: page, partial: partial, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return requestID(accessLog(s.mux))
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /items/{key}", s.handleItem)

	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/filter", s.handleFilter)
	s.mux.HandleFunc("POST /api/filter/reset", s.handleFilterReset)
	s.mux.HandleFunc("POST /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("GET /api/selection", s.handleSelection)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("GET /api/views/timeline", s.handleTimeline)
	s.mux.HandleFunc("GET /api/views/network", s.handleNetwork)
	s.mux.HandleFunc("GET /api/views/topics", s.handleTopics)
	s.mux.HandleFunc("GET /api/views/map", s.handleMapEvents)
	s.mux.HandleFunc("GET /ws/markers", s.handleMapSocket)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.dash.State()
	s.render(w, map[string]any{
		"State": st,
		"Views": dashboard.Views,
		"Types": explore.SortedTypes(st.Types),
	})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	item, ok := s.dash.Item(key)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var excerpt *preview.Excerpt
	if s.preview != nil && item.URL != "" && r.URL.Query().Get("preview") != "0" {
		ex, err := s.preview.Get(r.Context(), item.URL)
		if err != nil {
			log.Printf("Preview for %s unavailable: %v", item.Key, err)
		}
		excerpt = ex
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.partial.ExecuteTemplate(w, "item.html", map[string]any{
		"Item":    item,
		"Preview": excerpt,
	})
	if err != nil {
		log.Printf("Error rendering item %s: %v", key, err)
	}
}

func (s *Server) render(w http.ResponseWriter, data any) {
	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Rendering dashboard failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// renderMarkdown renders an abstract; text that fails to convert is shown escaped.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(d *dashboard.Dashboard, pv *preview.Fetcher, port int) error {
	srv, err := New(d, pv)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return hs.ListenAndServe()
}
