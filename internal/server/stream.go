package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TobiSchelling/refexplorer/internal/explore"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleMapEvents streams marker events as Server-Sent Events. The stream
// ends with a "done" event; a client that disconnects cancels the remaining
// resolutions.
func (s *Server) handleMapEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sent := 0
	for ev := range s.dash.Markers(r.Context()) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("Error marshaling marker %s: %v", ev.ID, err)
			continue
		}
		fmt.Fprintf(w, "event: marker\ndata: %s\n\n", data)
		flusher.Flush()
		sent++
	}
	if r.Context().Err() != nil {
		return
	}
	fmt.Fprintf(w, "event: done\ndata: {\"count\":%d}\n\n", sent)
	flusher.Flush()
}

type socketMessage struct {
	Type   string               `json:"type"`
	Marker *explore.MarkerEvent `json:"marker,omitempty"`
	Count  int                  `json:"count,omitempty"`
}

// handleMapSocket streams the same marker events over a WebSocket.
// Closing the socket stops the stream.
func (s *Server) handleMapSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sent := 0
	for ev := range s.dash.Markers(ctx) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(socketMessage{Type: "marker", Marker: &ev}); err != nil {
			log.Printf("WebSocket write failed: %v", err)
			return
		}
		sent++
	}
	if ctx.Err() != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(socketMessage{Type: "done", Count: sent})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
