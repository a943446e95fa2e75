package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "data/helium_gateway_data.csv", cfg.ObservationLog)
	assert.Equal(t, "data/ledger.json", cfg.LedgerPath)
	assert.Equal(t, "data/artifacts", cfg.ArtifactDir)
	assert.Equal(t, "https://www.ncei.noaa.gov/pub/data/igra/igra2-station-list.txt", cfg.StationListURL)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.InDelta(t, 45.70377, cfg.NodeLat, 1e-9)
	assert.InDelta(t, 13.7204, cfg.NodeLon, 1e-9)
	assert.Equal(t, "splat", cfg.SplatBinary)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":5000", cfg.IngestAddr)
	assert.Equal(t, 12, cfg.MapZoom)
	assert.Zero(t, cfg.RunInterval)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "gateway-links", cfg.KafkaLinksTopic)
}

func TestLoad_CustomEnvironment(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/correlator")
	t.Setenv("NODE_LAT", "46.05")
	t.Setenv("NODE_LON", "14.5")
	t.Setenv("FETCH_TIMEOUT", "90s")
	t.Setenv("RUN_INTERVAL", "6h")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/correlator/helium_gateway_data.csv", cfg.ObservationLog)
	assert.Equal(t, "/var/lib/correlator/igra", cfg.SoundingCacheDir)
	assert.InDelta(t, 46.05, cfg.NodeLat, 1e-9)
	assert.Equal(t, 90*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_NodeLatOutOfRange(t *testing.T) {
	t.Setenv("NODE_LAT", "95.0")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_NegativeIntervalRejected(t *testing.T) {
	t.Setenv("RUN_INTERVAL", "-1h")

	_, err := Load()

	assert.Error(t, err)
}
