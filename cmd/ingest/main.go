// Command ingest runs the measurement ingestion webhook and map API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/duct-correlation-service/internal/adapter/ingest"
	"github.com/couchcryptid/duct-correlation-service/internal/artifact"
	"github.com/couchcryptid/duct-correlation-service/internal/config"
	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/observability"
	"github.com/couchcryptid/duct-correlation-service/internal/obslog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store := obslog.NewStore(cfg.ObservationLog, logger)
	links := artifact.NewStore(cfg.ArtifactDir, logger)

	srv := ingest.NewServer(ingest.Config{
		Addr:       cfg.IngestAddr,
		Node:       domain.Point{Lat: cfg.NodeLat, Lon: cfg.NodeLon},
		MapZoom:    cfg.MapZoom,
		MessageLog: filepath.Join(cfg.DataDir, "helium_data_msg.txt"),
	}, store, links, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ingest server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingest server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
