package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huntable/jangter/aggregator"
	"github.com/huntable/jangter/api"
	"github.com/huntable/jangter/browser"
	"github.com/huntable/jangter/cache"
	"github.com/huntable/jangter/config"
	"github.com/huntable/jangter/engine"
	"github.com/huntable/jangter/models"
	"github.com/huntable/jangter/sources"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("jangter starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"serverless", cfg.Profile.Serverless,
		"region", cfg.Profile.Region,
	)

	// ── 3. Shared browser session (lazy: no Chrome until first use) ─
	sessions := browser.NewManager(cfg.Browser, cfg.Profile)
	defer sessions.Close()

	// ── 4. Fetch engines and per-source strategy chains ─────────────
	httpEngine := engine.NewHTTPEngine(cfg.Profile.FastFetchTimeout)
	rodEngine := engine.NewRodEngine(sessions, cfg.Profile.NavigationTimeout)
	engines := []engine.Engine{httpEngine, rodEngine}

	memory := engine.NewMemory(cfg.Scraper.EngineMemoryTTL)
	defer memory.Stop()

	store := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	extractors := []sources.Extractor{
		sources.NewBunjang(),
		sources.NewJoonggonara(),
		sources.NewDanggeun(),
	}
	scrapers := make([]*sources.Scraper, 0, len(extractors))
	for _, ex := range extractors {
		chain := engine.NewChain(string(ex.Source()), engines, memory)
		scrapers = append(scrapers, sources.NewScraper(ex, chain, store, cfg.Scraper, cfg.Profile))
	}

	// ── 5. Aggregation and detail enrichment ────────────────────────
	metrics := aggregator.NewMetrics()

	searchers := make([]aggregator.Searcher, len(scrapers))
	for i, sc := range scrapers {
		searchers[i] = sc
	}
	agg := aggregator.New(searchers, cfg.Profile.SourceBudget, cfg.Scraper.MaxConcurrentSources, metrics)
	details := sources.NewDetailScraper(scrapers, cfg.Scraper.DetailBatchSize, cfg.Profile.DetailTimeout)

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(agg, details, sessions, store, metrics, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr, "sources", models.ScrapableSources)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sessions.Close() runs via defer and kills Chrome if it was launched.
	slog.Info("jangter stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
