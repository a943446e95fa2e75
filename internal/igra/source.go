package igra

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/fetch"
)

// archiveSuffix is the per-station file name suffix in the derived-parameter
// archive (period-of-record files, zipped).
const archiveSuffix = "-drvd.txt.zip"

// Source serves sounding profiles for stations, downloading and caching each
// station's archive file on first use. The cache file is the idempotency
// marker: once a station's file is on disk it is never fetched again within
// the cache's lifetime, so a growing archive is picked up by clearing or
// rotating the cache directory externally.
type Source struct {
	fetcher  fetch.Fetcher
	baseURL  string
	cacheDir string
	logger   *slog.Logger
}

// NewSource creates a Source rooted at baseURL with an on-disk cache.
func NewSource(fetcher fetch.Fetcher, baseURL, cacheDir string, logger *slog.Logger) *Source {
	return &Source{
		fetcher:  fetcher,
		baseURL:  baseURL,
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// RecordsFor returns the station's sounding records for the given ISO date,
// in file order. An empty slice with a nil error means the archive has no
// record for that date yet; callers must not treat that as done.
func (s *Source) RecordsFor(ctx context.Context, stationID, date string) ([]domain.SoundingRecord, error) {
	path, err := s.ensureLocal(ctx, stationID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cached sounding file: %w", err)
	}
	defer f.Close()

	return ExtractDate(f, date, s.logger)
}

// ensureLocal returns the path of the station's unpacked sounding file,
// downloading and unzipping it if not already cached.
func (s *Source) ensureLocal(ctx context.Context, stationID string) (string, error) {
	path := filepath.Join(s.cacheDir, stationID+"-drvd.txt")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create sounding cache dir: %w", err)
	}

	url := s.baseURL + stationID + archiveSuffix
	s.logger.Info("downloading sounding archive", "station", stationID, "url", url)

	raw, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return "", err
	}

	data, err := unzipFirst(raw)
	if err != nil {
		return "", fmt.Errorf("unzip sounding archive %s: %w", stationID, err)
	}

	// Write through a temp file so a partial download never looks cached.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write sounding cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit sounding cache: %w", err)
	}
	return path, nil
}

// unzipFirst extracts the first regular file from a zip archive in memory.
// Station archives contain exactly one text file.
func unzipFirst(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("archive contains no files")
}
