package api

import (
	"net/http"
	"strconv"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/worker"
)

// handleHealth returns liveness, version and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

// handleStatus returns the full state snapshot plus worker lifecycle states.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var workers []worker.WorkerStatus
	if s.workers != nil {
		workers = s.workers.Statuses()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":   s.store.GetSnapshot(),
		"workers": workers,
	})
}

// handleLogs returns recent journal entries, oldest first. A category query
// filters by category name; a limit query keeps only the newest N.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" {
		cat, ok := bus.ParseCategory(category)
		if !ok {
			writeBadRequest(w, "unknown log category: "+category)
			return
		}
		// Normalise to the canonical name used in entries.
		category = cat.String()
	}

	entries := s.logs.Recent(category)

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

// handleLogsClear empties the recent-entries ring. Files on disk keep the
// full history.
func (s *Server) handleLogsClear(w http.ResponseWriter, _ *http.Request) {
	s.logs.ClearRecent()
	s.recorder.API("Log view cleared")
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
