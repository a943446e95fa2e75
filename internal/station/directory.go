// Package station loads the IGRA station list and answers nearest-station
// queries for the ducting pipeline.
package station

import (
	"bufio"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

// Fixed character offsets in the igra2-station-list format.
const (
	idStart   = 0
	idEnd     = 11
	latStart  = 12
	latEnd    = 20
	lonStart  = 21
	lonEnd    = 30
	yearStart = 77
	yearEnd   = 81
)

// Station is one radiosonde launch site. Immutable once loaded.
type Station struct {
	ID  string
	Lat float64
	Lon float64
}

// Point returns the station position as a coordinate pair.
func (s Station) Point() domain.Point {
	return domain.Point{Lat: s.Lat, Lon: s.Lon}
}

// Directory holds the stations still reporting data through the current
// year. It is rebuilt once per pipeline run and read-only afterwards.
type Directory struct {
	stations []Station
}

// Load parses the fixed-width station list, keeping only stations whose
// last-reporting-year field equals currentYear. Lines too short or with
// undecodable fields are skipped; the list source is append-only upstream and
// the occasional malformed line must not poison the rest.
func Load(r io.Reader, currentYear int, logger *slog.Logger) (*Directory, error) {
	var stations []Station

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < yearEnd {
			continue
		}

		year, err := strconv.Atoi(strings.TrimSpace(line[yearStart:yearEnd]))
		if err != nil || year != currentYear {
			continue
		}

		lat, errLat := strconv.ParseFloat(strings.TrimSpace(line[latStart:latEnd]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(line[lonStart:lonEnd]), 64)
		if errLat != nil || errLon != nil {
			logger.Warn("skipping station line with bad coordinates", "line", line[idStart:idEnd])
			continue
		}

		stations = append(stations, Station{
			ID:  strings.TrimSpace(line[idStart:idEnd]),
			Lat: lat,
			Lon: lon,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logger.Info("station directory loaded", "stations", len(stations), "year", currentYear)
	return &Directory{stations: stations}, nil
}

// Empty returns a directory with no stations, used when the station list
// source is unavailable so downstream lookups degrade to "none found".
func Empty() *Directory {
	return &Directory{}
}

// Len returns the number of loaded stations.
func (d *Directory) Len() int {
	return len(d.stations)
}

// Nearest returns the station closest to p by great-circle distance, or
// false when the directory is empty. Distance ties keep the
// first-encountered station; input order is stable but carries no meaning,
// so the tie-break is implementation-defined.
func (d *Directory) Nearest(p domain.Point) (Station, bool) {
	if len(d.stations) == 0 {
		return Station{}, false
	}

	best := d.stations[0]
	bestDist := domain.Haversine(p, best.Point())
	for _, s := range d.stations[1:] {
		if dist := domain.Haversine(p, s.Point()); dist < bestDist {
			best = s
			bestDist = dist
		}
	}
	return best, true
}
