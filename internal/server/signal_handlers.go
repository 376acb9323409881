package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/arbscan/internal/clock"
	"github.com/aristath/arbscan/internal/modules/signals"
)

const defaultRecentLimit = 20

// handleListSignals returns every stored signal.
func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	sigs, err := s.signalRepo.GetAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": sigs,
		"count":   len(sigs),
	})
}

// handleRecentSignals returns the most recent signals, newest first.
func (s *Server) handleRecentSignals(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	sigs, err := s.signalRepo.GetRecent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": sigs,
		"count":   len(sigs),
	})
}

// handleTodaySignals returns signals stamped on the current trading day.
func (s *Server) handleTodaySignals(w http.ResponseWriter, r *http.Request) {
	sigs, err := s.signalRepo.GetToday(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": sigs,
		"count":   len(sigs),
	})
}

// handleGetSignal returns one signal by ID.
func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sig, err := s.signalRepo.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sig == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "signal not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, sig)
}

// handleSignalBreakdown explains one signal's confidence as weighted
// sub-scores against the balanced thresholds.
func (s *Server) handleSignalBreakdown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sig, err := s.signalRepo.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sig == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "signal not found"})
		return
	}

	breakdown := signals.NewConfidenceBreakdown(
		sig.SealAmount/1e8,   // currency units -> 10^8 units
		sig.ActualWeight,
		sig.ETFAmount/10_000, // currency units -> 10^4 units
		timeToCloseOf(sig),
		signals.DefaultBreakdownThresholds(),
	)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signal_id": sig.SignalID,
		"breakdown": breakdown,
	})
}

// timeToCloseOf derives seconds to the 15:00 close from the signal's own
// timestamp; 0 when the stamp is malformed or after close.
func timeToCloseOf(sig *signals.TradingSignal) int {
	ts, err := time.ParseInLocation(signals.TimestampLayout, sig.Timestamp, clock.ChinaTZ)
	if err != nil {
		return 0
	}
	closeAt := time.Date(ts.Year(), ts.Month(), ts.Day(), 15, 0, 0, 0, ts.Location())
	ttc := int(closeAt.Sub(ts).Seconds())
	if ttc < 0 {
		return 0
	}
	return ttc
}

// handleTriggerScan runs one scan tick immediately.
func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.coordinator.ScanOnce(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
