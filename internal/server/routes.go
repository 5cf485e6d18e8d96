package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/TidepoolCurrent/recall/internal/memory"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string         `json:"category"`
		Event    map[string]any `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Event) == 0 {
		writeError(w, http.StatusBadRequest, "event required")
		return
	}

	rec, err := memory.Encode(req.Event, req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := s.net.Add(rec)
	if err != nil {
		switch {
		case errors.Is(err, memory.ErrDuplicateID):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, memory.ErrUnknownCategory), errors.Is(err, memory.ErrInvalidParameter):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      receipt.ID,
		"receipt": receipt,
	})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.net.Get(id)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cue := q.Get("cue")
	if cue == "" {
		writeError(w, http.StatusBadRequest, "cue required")
		return
	}

	opts := memory.Options{
		TopK:          5,
		TemporalDecay: true,
	}
	var err error
	if v := q.Get("k"); v != "" {
		if opts.TopK, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid k")
			return
		}
	}
	if v := q.Get("hops"); v != "" {
		if opts.Hops, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid hops")
			return
		}
	}
	if v := q.Get("decay"); v != "" {
		if opts.Decay, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid decay")
			return
		}
	}
	if v := q.Get("threshold"); v != "" {
		if opts.InhibitionThreshold, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
	} else {
		opts.InhibitionThreshold = memory.DefaultInhibition
	}
	if v := q.Get("temporal"); v != "" {
		if opts.TemporalDecay, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid temporal")
			return
		}
	}
	if v := q.Get("task_type"); v != "" {
		opts.Context = &memory.Context{TaskType: v}
	}

	start := time.Now()
	results, err := s.net.Retrieve(cue, opts)
	if err != nil {
		if errors.Is(err, memory.ErrInvalidParameter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.db != nil {
		topScore := 0.0
		if len(results) > 0 {
			topScore = results[0].Score
		}
		if err := s.db.LogRecall(cue, len(results), topScore, time.Since(start)); err != nil {
			log.Printf("log recall: %v", err)
		}
	}

	if results == nil {
		results = []memory.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cue":     cue,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.net.NetworkStats()

	out := map[string]any{"network": stats}
	if s.db != nil {
		if n, err := s.db.RecallCount(); err == nil {
			out["recalls"] = n
		}
		if batches, err := s.db.RecentBatches(5); err == nil {
			out["recent_batches"] = batches
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := memory.EncodeSnapshot(w, s.net.Save()); err != nil {
		log.Printf("snapshot export: %v", err)
	}
}

func (s *Server) handleRecalls(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]any{"recalls": []any{}})
		return
	}
	recalls, err := s.db.RecentRecalls(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recalls": recalls})
}

// handleSave persists the current network to the database on demand. The
// serve command also saves on shutdown; this exists so long-running
// servers can checkpoint.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	if err := s.db.SaveNetwork(s.net.Save()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "nodes": s.net.Len()})
}
