package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"report-generator/internal/api"
	"report-generator/internal/config"
	"report-generator/internal/database"
	"report-generator/internal/logger"
	"report-generator/internal/services"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, Dir: cfg.Log.Dir, Prefix: "relay"}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.Writer()

	if !cfg.Airtable.HasCredentials() {
		// The relay still starts and answers 500 per request
		logger.Warn(config.ErrMissingCredentials.Error())
	}

	ctx := context.Background()

	// Initialize idempotency store (optional)
	store, err := database.NewStore(ctx, cfg)
	if err != nil {
		logger.Warn("Idempotency store unavailable, deduplication disabled", "backend", cfg.Idempotency.Backend, "error", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	// Initialize InfluxDB telemetry (optional)
	var metrics *services.MetricsService
	if cfg.InfluxDB.URL != "" {
		metrics, err = services.NewMetricsService(ctx, cfg.InfluxDB)
		if err != nil {
			logger.Warn("Failed to connect to InfluxDB, relay metrics disabled", "error", err)
			metrics = nil
		} else {
			defer metrics.Close()
		}
	} else {
		logger.Info("InfluxDB not configured, relay metrics disabled")
	}

	// Initialize services and handlers
	upstream := services.NewUpstreamService(cfg.Airtable, nil)
	handlers := api.NewHandlers(upstream, services.NewIdempotencyService(store), metrics)
	router := api.SetupRoutes(handlers)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", "error", err)
	}
}
