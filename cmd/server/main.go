// Package main is the entry point for the arbscan ETF arbitrage scanner.
// It wires the live scan loop: quote client, holdings data, strategy chain,
// scan coordinator, scheduler and the HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arbscan/internal/clients/tencent"
	"github.com/aristath/arbscan/internal/config"
	"github.com/aristath/arbscan/internal/database"
	"github.com/aristath/arbscan/internal/modules/market"
	"github.com/aristath/arbscan/internal/modules/replay"
	"github.com/aristath/arbscan/internal/modules/scan"
	"github.com/aristath/arbscan/internal/modules/signals"
	"github.com/aristath/arbscan/internal/modules/strategy"
	"github.com/aristath/arbscan/internal/modules/watchlist"
	"github.com/aristath/arbscan/internal/scheduler"
	"github.com/aristath/arbscan/internal/server"
	"github.com/aristath/arbscan/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting arbscan")

	// Databases
	signalsDB := mustOpenDB(cfg, "signals", log)
	defer signalsDB.Close()
	watchlistDB := mustOpenDB(cfg, "watchlist", log)
	defer watchlistDB.Close()

	signalRepo := signals.NewSQLiteRepository(signalsDB, nil, log)
	watchRepo := watchlist.NewSQLiteRepository(watchlistDB, log)

	// Providers
	quoteClient := tencent.NewClient(cfg.QuoteBaseURL, time.Duration(cfg.QuoteTimeoutSec)*time.Second, nil, log)
	quotes := market.NewCachedQuoteProvider(quoteClient, nil, 5*time.Second, 0)
	holdings := loadHoldings(filepath.Join(cfg.DataDir, "holdings.json"), log)

	// Strategy chain
	executor, err := strategy.BuildChain(strategy.DefaultChainConfig(), quotes, holdings, cfg.MinWeight, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build strategy chain")
	}

	sink := signals.SinkFromConfig(cfg.SenderEnabled, cfg.SenderName, log)
	coordinator := scan.NewCoordinator(executor, watchRepo, signalRepo, sink, nil, scan.Options{}, log)

	presets, err := config.LoadPresets(cfg.PresetsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load strategy presets")
	}

	// Background jobs
	sched := scheduler.New(log)
	mustAddJob(sched, cfg.ScanCron, scheduler.NewScanJob(coordinator, nil, log), log)
	databases := map[string]*database.DB{"signals": signalsDB, "watchlist": watchlistDB}
	mustAddJob(sched, "@every 15m", scheduler.NewWALCheckpointJob(databases, log), log)
	mustAddJob(sched, "@hourly", scheduler.NewDatabaseHealthJob(databases, log), log)
	mustAddJob(sched, "@daily", scheduler.NewSignalRetentionJob(signalsDB, 0, nil, log), log)
	sched.Start()

	// HTTP surface
	srv := server.New(server.Config{
		Log:         log,
		Cfg:         cfg,
		SignalRepo:  signalRepo,
		WatchRepo:   watchRepo,
		Coordinator: coordinator,
		Loader:      replay.NewLoader(cfg.CacheDir(), log),
		Presets:     presets,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Str("scan_cron", cfg.ScanCron).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// mustOpenDB opens and migrates one named database under the data dir.
func mustOpenDB(cfg *config.Config, name string, log zerolog.Logger) *database.DB {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(name),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to migrate database")
	}
	return db
}

func mustAddJob(sched *scheduler.Scheduler, schedule string, job scheduler.Job, log zerolog.Logger) {
	if err := sched.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
	}
}

// loadHoldings reads the stock-to-ETF holdings map from a JSON file. A
// missing file is not fatal: the scanner starts with an empty map and every
// event resolves to "no eligible funds" until data is supplied.
func loadHoldings(path string, log zerolog.Logger) *market.MemoryHoldingProvider {
	provider := market.NewMemoryHoldingProvider()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("No holdings file, starting with empty holdings")
		} else {
			log.Error().Err(err).Str("path", path).Msg("Failed to read holdings file")
		}
		return provider
	}

	var entries map[string][]market.HoldingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse holdings file")
		return provider
	}

	for code, holdings := range entries {
		provider.SetHoldings(code, holdings)
	}
	log.Info().Int("securities", len(entries)).Str("path", path).Msg("Holdings loaded")
	return provider
}
