// Command correlator runs the ducting detection and visibility correlation
// batch over the gateway measurement log. It runs once by default; with
// RUN_INTERVAL set it repeats on that cadence until terminated.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/duct-correlation-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/duct-correlation-service/internal/adapter/kafka"
	"github.com/couchcryptid/duct-correlation-service/internal/artifact"
	"github.com/couchcryptid/duct-correlation-service/internal/config"
	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/fetch"
	"github.com/couchcryptid/duct-correlation-service/internal/igra"
	"github.com/couchcryptid/duct-correlation-service/internal/ledger"
	"github.com/couchcryptid/duct-correlation-service/internal/observability"
	"github.com/couchcryptid/duct-correlation-service/internal/obslog"
	"github.com/couchcryptid/duct-correlation-service/internal/pipeline"
	"github.com/couchcryptid/duct-correlation-service/internal/splat"
	"github.com/couchcryptid/duct-correlation-service/internal/station"
)

// stationProvider adapts station.Provider to the pipeline's interface.
type stationProvider struct {
	p *station.Provider
}

func (s stationProvider) Directory(ctx context.Context) (pipeline.StationIndex, error) {
	return s.p.Directory(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	fetcher := fetch.NewHTTPFetcher(cfg.FetchTimeout, logger)
	observations := obslog.NewStore(cfg.ObservationLog, logger)
	stations := station.NewProvider(fetcher, cfg.StationListURL, logger)
	soundings := igra.NewSource(fetcher, cfg.SoundingArchiveURL, cfg.SoundingCacheDir, logger)

	tracer := splat.NewExecTracer(cfg.SplatBinary, cfg.TerrainDir, logger)
	node := splat.Site{Name: "endnode", Lat: cfg.NodeLat, Lon: cfg.NodeLon, AltM: cfg.NodeAltM}
	resolver := splat.NewResolver(tracer, cfg.QTHDir, cfg.ResultsDir, node, cfg.GatewayAntHeight, logger)

	workLedger := ledger.Load(cfg.LedgerPath, logger)
	artifacts := artifact.NewStore(cfg.ArtifactDir, logger)

	// Link publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.LinkPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaLinksTopic, logger)
		publisher = kafkaWriter
		logger.Info("kafka link publishing enabled", "topic", cfg.KafkaLinksTopic)
	} else {
		logger.Info("kafka link publishing disabled")
	}

	driver := pipeline.New(
		observations,
		stationProvider{stations},
		soundings,
		resolver,
		artifacts,
		workLedger,
		publisher,
		domain.Point{Lat: cfg.NodeLat, Lon: cfg.NodeLon},
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, driver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		for {
			if err := driver.Run(ctx); err != nil {
				logger.Error("correlation run error", "error", err)
			}
			if cfg.RunInterval <= 0 {
				stop()
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.RunInterval):
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
