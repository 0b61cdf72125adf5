// Package dashboard serves a small status page over the cycle history.
package dashboard

import (
	"embed"
	"encoding/json"
	"net/http"

	"github.com/mkessler/sitepulse/internal/history"
)

//go:embed static/*
var staticFS embed.FS

// Server serves the sitepulse status dashboard.
type Server struct {
	history *history.Store
}

// NewServer creates a dashboard server over the given history store.
func NewServer(h *history.Store) *Server {
	return &Server{history: h}
}

// Handler returns an http.Handler for the dashboard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.serveIndex)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	return mux
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.history.Stats())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records := s.history.All()
	// Reverse chronological (newest first)
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
