package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/replay"
	"github.com/aristath/arbscan/internal/modules/strategy"
)

// replayRequest is the body for replay preview and run calls.
type replayRequest struct {
	Config     map[string]any            `json:"config"`
	StockCodes []string                  `json:"stock_codes"`
	ETFCodes   []string                  `json:"etf_codes"`
	Snapshots  []replay.HoldingsSnapshot `json:"snapshots"`
}

func (s *Server) decodeReplayRequest(w http.ResponseWriter, r *http.Request) (*replayRequest, replay.BacktestConfig, bool) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, replay.BacktestConfig{}, false
	}

	cfg, err := replay.BacktestConfigFromMap(req.Config)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, replay.BacktestConfig{}, false
	}
	if err := cfg.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, replay.BacktestConfig{}, false
	}
	return &req, cfg, true
}

// handleReplayPreview grades cached data coverage for a replay range
// without running it.
func (s *Server) handleReplayPreview(w http.ResponseWriter, r *http.Request) {
	req, cfg, ok := s.decodeReplayRequest(w, r)
	if !ok {
		return
	}

	stockCodes, err := s.resolveUniverse(r, req.StockCodes, cfg)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(stockCodes) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no securities to preview"})
		return
	}

	// Load whatever series exist; gaps show up as missing coverage.
	provider := replay.NewHistoricalQuoteProvider(cfg.Granularity)
	s.loadSeries(provider, replay.KindStock, stockCodes, cfg)
	s.loadSeries(provider, replay.KindETF, req.ETFCodes, cfg)

	preview, err := replay.BuildQualityPreview(cfg, stockCodes, req.ETFCodes, provider, s.log)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preview)
}

// handleReplayRun runs a full historical replay synchronously.
func (s *Server) handleReplayRun(w http.ResponseWriter, r *http.Request) {
	req, cfg, ok := s.decodeReplayRequest(w, r)
	if !ok {
		return
	}

	universe, err := s.resolveUniverse(r, req.StockCodes, cfg)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	engine, err := replay.NewEngine(cfg, universe, s.loader, nil, s.log)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, strategy.ErrConfig) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	for _, snapshot := range req.Snapshots {
		engine.Holdings().AddSnapshot(snapshot)
	}

	if err := engine.LoadData(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, market.ErrNoData) {
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err)
		return
	}

	result, err := engine.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// resolveUniverse picks explicit codes when given, otherwise the enabled
// watchlist when the config asks for it.
func (s *Server) resolveUniverse(r *http.Request, explicit []string, cfg replay.BacktestConfig) ([]string, error) {
	if len(explicit) > 0 || !cfg.UseWatchlist {
		return explicit, nil
	}
	return s.watchRepo.EnabledCodes(r.Context())
}

// loadSeries loads cached series into provider, skipping absent files.
func (s *Server) loadSeries(provider *replay.HistoricalQuoteProvider, kind replay.SeriesKind, codes []string, cfg replay.BacktestConfig) {
	for _, code := range codes {
		series, err := s.loader.Load(kind, code, cfg.StartDate, cfg.EndDate, cfg.Granularity)
		if err != nil {
			s.log.Debug().Err(err).Str("code", code).Msg("No cached series for preview")
			continue
		}
		provider.AddSeries(series)
	}
}
