package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seocheck/analyzer"
	"github.com/seo-optimizer/seocheck/api"
	"github.com/seo-optimizer/seocheck/config"
	"github.com/seo-optimizer/seocheck/logging"
	"github.com/seo-optimizer/seocheck/metrics"
	"github.com/seo-optimizer/seocheck/middleware"
	"github.com/seo-optimizer/seocheck/stats"
)

// maintenanceInterval is how often idle rate-limit buckets are dropped and
// old monthly counters pruned
const maintenanceInterval = time.Minute

func main() {
	// Load environment configuration
	envErr := config.LoadEnv()
	cfg, warnings := config.Load()

	// The logger comes first so every later step can report through it
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if envErr != nil {
		logger.Warn("could not read .env file, using environment variables", "err", envErr)
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	// Set up Gin mode
	gin.SetMode(cfg.GinMode)

	// Initialize persistent counters and request statistics
	storage, err := stats.NewStorage(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize stats storage", "err", err)
	}

	statistics, err := logging.NewStatistics(cfg.DataDir)
	if err != nil {
		logger.Warn("could not load existing statistics", "err", err)
	}

	m := metrics.New()

	// Initialize services
	opts := analyzer.DefaultOptions()
	opts.RelayURL = cfg.RelayURL
	opts.SuggestURL = cfg.SuggestURL
	opts.FetchTimeout = cfg.FetchTimeout
	opts.SuggestTimeout = cfg.SuggestTimeout
	opts.SuggestGrace = cfg.SuggestGrace
	opts.MaxPageBytes = cfg.MaxPageBytes
	opts.CacheTTL = cfg.CacheTTL
	seoAnalyzer := analyzer.New(opts, storage, m, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	server := &api.Server{
		Analyzer:    seoAnalyzer,
		Storage:     storage,
		Statistics:  statistics,
		Metrics:     m,
		RateLimiter: rateLimiter,
		Logger:      logger,
		DevMode:     cfg.DevMode,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Cancelled on SIGINT/SIGTERM; everything below shuts down from it
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic maintenance
	go func() {
		ticker := time.NewTicker(maintenanceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimiter.Prune()
				storage.Cleanup(cfg.RetainMonths)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start server
	go func() {
		logger.Info("server starting", "addr", "http://localhost:"+cfg.Port, "relay", cfg.RelayURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", "err", err)
		}
	}()

	// Wait for a shutdown signal, then drain requests before saving state
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	if err := statistics.Save(); err != nil {
		logger.Error("failed to save statistics", "err", err)
	}
	if err := seoAnalyzer.Shutdown(); err != nil {
		logger.Error("analyzer shutdown failed", "err", err)
	}
}
