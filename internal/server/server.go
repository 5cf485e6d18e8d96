package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/TidepoolCurrent/recall/internal/memory"
	"github.com/TidepoolCurrent/recall/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the recall HTTP API server. It shares one network and one
// database: the network's own lock arbitrates writers and readers.
type Server struct {
	net     *memory.Network
	db      *store.DB
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server. db may be nil when running without
// persistence; the audit endpoints then report empty.
func New(net *memory.Network, db *store.DB, version string) *Server {
	s := &Server{
		net:     net,
		db:      db,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/memories", s.handleAddMemory)
		r.Get("/memories/{id}", s.handleGetMemory)
		r.Get("/retrieve", s.handleRetrieve)
		r.Get("/stats", s.handleStats)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/recalls", s.handleRecalls)
		r.Post("/save", s.handleSave)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := false
	dbPath := ""
	if s.db != nil {
		dbOK = s.db.Ping() == nil
		dbPath = s.db.Path
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"nodes":   s.net.Len(),
		"db":      dbOK,
		"db_path": dbPath,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
