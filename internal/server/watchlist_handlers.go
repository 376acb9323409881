package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/arbscan/internal/modules/watchlist"
)

// handleListWatchlist returns all watchlist entries.
func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.watchRepo.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleUpsertWatchlist adds or replaces a watchlist entry.
func (s *Server) handleUpsertWatchlist(w http.ResponseWriter, r *http.Request) {
	var entry watchlist.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := entry.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.watchRepo.Upsert(r.Context(), &entry); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

// handleSetWatchlistEnabled flips one entry's enabled flag.
func (s *Server) handleSetWatchlistEnabled(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := s.watchRepo.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "watchlist entry not found"})
		return
	}

	if err := s.watchRepo.SetEnabled(r.Context(), code, body.Enabled); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code": code,
		"enabled":    body.Enabled,
	})
}

// handleRemoveWatchlist deletes one entry.
func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	entry, err := s.watchRepo.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "watchlist entry not found"})
		return
	}

	if err := s.watchRepo.Remove(r.Context(), code); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"removed": code})
}
