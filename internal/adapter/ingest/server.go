// Package ingest serves the measurement ingestion webhook and the small API
// the map front-end reads.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/observability"
)

// ObservationAppender persists new observation rows.
type ObservationAppender interface {
	Append(obs []domain.Observation) error
}

// LinkReader serves the current gateway link index.
type LinkReader interface {
	LoadLinks() map[string]domain.GatewayLink
}

// Config holds the server's wiring.
type Config struct {
	Addr       string
	Node       domain.Point
	MapZoom    int
	MessageLog string // raw uplink append log; empty disables it
}

// Server receives Helium/ChirpStack uplink webhooks and appends one
// observation row per reporting gateway.
type Server struct {
	httpServer *http.Server
	store      ObservationAppender
	links      LinkReader
	cfg        Config
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates the ingestion server.
func NewServer(cfg Config, store ObservationAppender, links LinkReader, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		store:   store,
		links:   links,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/helium-data", s.handleUplink)
	router.GET("/api/config", s.handleConfig)
	router.GET("/api/gateways", s.handleGateways)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("ingest server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// uplinkPayload is the subset of the ChirpStack uplink event the ingestion
// cares about: one rxInfo entry per gateway that heard the frame.
type uplinkPayload struct {
	RxInfo []rxInfo `json:"rxInfo"`
}

type rxInfo struct {
	GwTime    string     `json:"gwTime"`
	GatewayID string     `json:"gatewayId"`
	RSSI      int        `json:"rssi"`
	SNR       float64    `json:"snr"`
	Metadata  rxMetadata `json:"metadata"`
}

// rxMetadata carries the console's gateway annotations. Coordinates arrive
// as strings.
type rxMetadata struct {
	GatewayName string `json:"gateway_name"`
	GatewayID   string `json:"gateway_id"`
	GatewayLong string `json:"gateway_long"`
	GatewayLat  string `json:"gateway_lat"`
}

func (s *Server) handleUplink(c *gin.Context) {
	s.metrics.IngestRequests.Inc()

	body, err := c.GetRawData()
	if err != nil {
		s.metrics.IngestErrors.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	s.appendMessageLog(body)

	var payload uplinkPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.metrics.IngestErrors.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	obs := make([]domain.Observation, 0, len(payload.RxInfo))
	for _, rx := range payload.RxInfo {
		o, err := s.toObservation(rx)
		if err != nil {
			s.logger.Warn("skipping rxInfo entry", "gateway", rx.GatewayID, "error", err)
			continue
		}
		obs = append(obs, o)
	}

	if len(obs) > 0 {
		if err := s.store.Append(obs); err != nil {
			s.metrics.IngestErrors.Inc()
			s.logger.Error("observation append failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		s.metrics.IngestObservations.Add(float64(len(obs)))
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "observations": len(obs)})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"end_device_lat": s.cfg.Node.Lat,
		"end_device_lon": s.cfg.Node.Lon,
		"zoom_level":     s.cfg.MapZoom,
	})
}

func (s *Server) handleGateways(c *gin.Context) {
	c.JSON(http.StatusOK, s.links.LoadLinks())
}

// toObservation converts one rxInfo entry to an observation row, computing
// the node-to-gateway great-circle distance. Entries without decodable
// coordinates are rejected; a position-less row is useless to the pipeline.
func (s *Server) toObservation(rx rxInfo) (domain.Observation, error) {
	lat, err := strconv.ParseFloat(rx.Metadata.GatewayLat, 64)
	if err != nil {
		return domain.Observation{}, err
	}
	lon, err := strconv.ParseFloat(rx.Metadata.GatewayLong, 64)
	if err != nil {
		return domain.Observation{}, err
	}

	ts, err := time.Parse(time.RFC3339, rx.GwTime)
	if err != nil {
		ts = domain.Clock().Now().UTC()
	}

	gatewayID := rx.Metadata.GatewayID
	if gatewayID == "" {
		gatewayID = rx.GatewayID
	}

	gw := domain.Point{Lat: lat, Lon: lon}
	return domain.Observation{
		Timestamp:   ts,
		GatewayID:   gatewayID,
		GatewayName: rx.Metadata.GatewayName,
		Gateway:     gw,
		Node:        s.cfg.Node,
		DistanceKm:  domain.Haversine(s.cfg.Node, gw),
		RSSI:        rx.RSSI,
		SNR:         rx.SNR,
		Visibility:  domain.VisibilityUnknown,
	}, nil
}

// appendMessageLog keeps the raw uplink payloads for debugging. Best effort.
func (s *Server) appendMessageLog(body []byte) {
	if s.cfg.MessageLog == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.MessageLog), 0o755); err != nil {
		s.logger.Warn("message log dir create failed", "error", err)
		return
	}
	f, err := os.OpenFile(s.cfg.MessageLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("message log open failed", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(body, '\n')); err != nil {
		s.logger.Warn("message log write failed", "error", err)
	}
}
