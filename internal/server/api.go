package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/TobiSchelling/refexplorer/internal/catalog"
	"github.com/TobiSchelling/refexplorer/internal/dashboard"
	"github.com/TobiSchelling/refexplorer/internal/explore"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps dashboard errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrUnknownView):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownItem):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var u dashboard.FilterUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	st, err := s.dash.SetFilter(u)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFilterReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.ResetFilter())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.dash.SetView(req.View)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type selectionResponse struct {
	Item *catalog.Item `json:"item"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		s.dash.ClearSelection()
		writeJSON(w, http.StatusOK, selectionResponse{})
		return
	}
	item, err := s.dash.Select(req.ID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Item: &item})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	item, ok := s.dash.Selection()
	if !ok {
		writeJSON(w, http.StatusOK, selectionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Item: &item})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"state": s.dash.State(),
		})
		return
	}
	writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Timeline())
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Network())
}

// handleTopics returns tag counts in first-seen order; ?sort=count orders
// them by count.
func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	counts := s.dash.Topics()
	if r.URL.Query().Get("sort") == "count" {
		counts = explore.SortTagCounts(counts)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(counts) {
			counts = counts[:n]
		}
	}
	writeJSON(w, http.StatusOK, counts)
}
