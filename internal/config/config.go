package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir        string
	ObservationLog string
	LedgerPath     string
	ArtifactDir    string

	StationListURL     string
	SoundingArchiveURL string
	SoundingCacheDir   string
	FetchTimeout       time.Duration

	// Receiving node position and assumed antenna heights for the terrain
	// trace.
	NodeLat          float64
	NodeLon          float64
	NodeAltM         float64
	GatewayAntHeight float64

	SplatBinary string
	TerrainDir  string
	QTHDir      string
	ResultsDir  string

	HTTPAddr        string
	IngestAddr      string
	MapZoom         int
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// RunInterval re-runs the batch on a cadence; zero means run once.
	RunInterval time.Duration

	// Optional Kafka publishing of gateway link records.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaLinksTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "./data")

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	nodeLat, err := parseFloat("NODE_LAT", "45.70377")
	if err != nil {
		return nil, err
	}
	nodeLon, err := parseFloat("NODE_LON", "13.7204")
	if err != nil {
		return nil, err
	}
	nodeAlt, err := parseFloat("NODE_ALT_M", "2")
	if err != nil {
		return nil, err
	}
	antHeight, err := parseFloat("GATEWAY_ANT_HEIGHT_M", "10")
	if err != nil {
		return nil, err
	}
	mapZoom, err := parseInt("MAP_ZOOM", "12")
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		DataDir:        dataDir,
		ObservationLog: sharedcfg.EnvOrDefault("OBSERVATION_LOG", filepath.Join(dataDir, "helium_gateway_data.csv")),
		LedgerPath:     sharedcfg.EnvOrDefault("LEDGER_PATH", filepath.Join(dataDir, "ledger.json")),
		ArtifactDir:    sharedcfg.EnvOrDefault("ARTIFACT_DIR", filepath.Join(dataDir, "artifacts")),

		StationListURL:     sharedcfg.EnvOrDefault("STATION_LIST_URL", "https://www.ncei.noaa.gov/pub/data/igra/igra2-station-list.txt"),
		SoundingArchiveURL: sharedcfg.EnvOrDefault("SOUNDING_ARCHIVE_URL", "https://www.ncei.noaa.gov/pub/data/igra/derived/derived-por/"),
		SoundingCacheDir:   sharedcfg.EnvOrDefault("SOUNDING_CACHE_DIR", filepath.Join(dataDir, "igra")),
		FetchTimeout:       fetchTimeout,

		NodeLat:          nodeLat,
		NodeLon:          nodeLon,
		NodeAltM:         nodeAlt,
		GatewayAntHeight: antHeight,

		SplatBinary: sharedcfg.EnvOrDefault("SPLAT_BINARY", "splat"),
		TerrainDir:  sharedcfg.EnvOrDefault("TERRAIN_DIR", filepath.Join(dataDir, "terrain")),
		QTHDir:      sharedcfg.EnvOrDefault("QTH_DIR", filepath.Join(dataDir, "terrain", "qth")),
		ResultsDir:  sharedcfg.EnvOrDefault("RESULTS_DIR", filepath.Join(dataDir, "results")),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		IngestAddr:      sharedcfg.EnvOrDefault("INGEST_ADDR", ":5000"),
		MapZoom:         mapZoom,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RunInterval:     runInterval,

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLinksTopic: sharedcfg.EnvOrDefault("KAFKA_LINKS_TOPIC", "gateway-links"),
	}

	if cfg.NodeLat < -90 || cfg.NodeLat > 90 {
		return nil, errors.New("NODE_LAT out of range")
	}
	if cfg.NodeLon < -180 || cfg.NodeLon > 180 {
		return nil, errors.New("NODE_LON out of range")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaLinksTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_LINKS_TOPIC is empty")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	v, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseInt(key, def string) (int, error) {
	v, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}
