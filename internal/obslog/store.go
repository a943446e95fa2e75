// Package obslog owns the gateway measurement log: an append-mostly CSV file
// fed by the ingestion server and read by the correlation pipeline.
package obslog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

// header is the CSV layout inherited from the original collector; column
// order is part of the on-disk contract, consumed by external tooling.
var header = []string{
	"gwTime", "gatewayId", "gateway_name", "gateway_id",
	"node_long", "node_lat", "gateway_long", "gateway_lat",
	"dist_km", "rssi", "snr", "visibility",
}

// Store reads and writes the observation CSV log. Appends are serialized
// with a mutex for concurrent ingest handlers; cross-process coordination is
// the scheduler's job.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for the log at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads every observation row. A missing file is an empty log, not an
// error. Rows that cannot be decoded are skipped with a warning; one bad row
// must never hide the rest of the log.
func (s *Store) Load() ([]domain.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open observation log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read observation log: %w", err)
	}

	var obs []domain.Observation
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		o, err := decodeRow(row)
		if err != nil {
			s.logger.Warn("skipping malformed observation row", "row", i+1, "error", err)
			continue
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// Append adds rows to the log, creating it with a header line when absent.
func (s *Store) Append(obs []domain.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create observation log dir: %w", err)
	}

	_, statErr := os.Stat(s.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open observation log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write observation log header: %w", err)
		}
	}
	for _, o := range obs {
		if err := w.Write(encodeRow(o)); err != nil {
			return fmt.Errorf("append observation: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// SetVisibility rewrites the log with every row of the given gateway carrying
// the resolved visibility. Visibility is a static property of the gateway's
// position, so all timestamps get the same classification. The rewrite goes
// through a temp file and rename so a crash never leaves a truncated log.
func (s *Store) SetVisibility(gatewayID string, vis domain.Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("open observation log: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read observation log: %w", err)
	}

	for i, row := range rows {
		if i == 0 || len(row) != len(header) {
			continue
		}
		if row[1] == gatewayID {
			row[11] = string(vis)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("rewrite observation log: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("rewrite observation log: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("rewrite observation log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("rewrite observation log: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func decodeRow(row []string) (domain.Observation, error) {
	if len(row) != len(header) {
		return domain.Observation{}, fmt.Errorf("want %d fields, got %d", len(header), len(row))
	}

	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return domain.Observation{}, fmt.Errorf("gwTime: %w", err)
	}
	nodeLon, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("node_long: %w", err)
	}
	nodeLat, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("node_lat: %w", err)
	}
	gwLon, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("gateway_long: %w", err)
	}
	gwLat, err := strconv.ParseFloat(row[7], 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("gateway_lat: %w", err)
	}

	// Distance, RSSI and SNR are informational; a bad value costs the field,
	// not the row.
	dist, _ := strconv.ParseFloat(row[8], 64)
	rssi, _ := strconv.Atoi(row[9])
	snr, _ := strconv.ParseFloat(row[10], 64)

	return domain.Observation{
		Timestamp:   ts,
		GatewayID:   row[1],
		GatewayName: row[2],
		Gateway:     domain.Point{Lat: gwLat, Lon: gwLon},
		Node:        domain.Point{Lat: nodeLat, Lon: nodeLon},
		DistanceKm:  dist,
		RSSI:        rssi,
		SNR:         snr,
		Visibility:  domain.ParseVisibility(row[11]),
	}, nil
}

func encodeRow(o domain.Observation) []string {
	return []string{
		o.Timestamp.UTC().Format(time.RFC3339),
		o.GatewayID,
		o.GatewayName,
		o.GatewayID,
		strconv.FormatFloat(o.Node.Lon, 'f', -1, 64),
		strconv.FormatFloat(o.Node.Lat, 'f', -1, 64),
		strconv.FormatFloat(o.Gateway.Lon, 'f', -1, 64),
		strconv.FormatFloat(o.Gateway.Lat, 'f', -1, 64),
		strconv.FormatFloat(o.DistanceKm, 'f', 3, 64),
		strconv.Itoa(o.RSSI),
		strconv.FormatFloat(o.SNR, 'f', 1, 64),
		string(o.Visibility),
	}
}
