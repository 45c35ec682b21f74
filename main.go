package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keeptree/internal/api"
	"keeptree/internal/catalog"
	"keeptree/internal/config"
	"keeptree/internal/logging"
	"keeptree/internal/metrics"
	"keeptree/internal/middleware"
	"keeptree/internal/watch"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Open the catalog
	cat, err := catalog.Open(cfg.Database.Path, cfg.CatalogOptions(), logger.Logger)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.Error(err))
	}
	defer cat.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watch a manifest directory
	if cfg.Watch.Dir != "" {
		w, err := watch.New(cfg.Watch.Dir, cat, logger.Logger)
		if err != nil {
			logger.Fatal("failed to start watcher", zap.Error(err))
		}
		defer w.Close()
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cat, logger, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("address", srv.Addr),
		zap.String("environment", cfg.Environment),
		zap.String("catalog", cat.Root),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newHandler(cat *catalog.Catalog, logger *logging.Logger, corsOrigins []string) http.Handler {
	mux := http.NewServeMux()
	api.NewCollectionHandler(cat, logger).Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	// Metrics wraps the mux directly so it sees the matched pattern.
	return middleware.Chain(
		mux,
		middleware.Metrics,
		middleware.Logger(logger),
		middleware.Recover(logger),
		middleware.RequestID,
		middleware.CORS(corsOrigins),
	)
}
