// Package igra parses IGRA derived-parameter sounding files and serves
// per-station profiles from a local cache of the remote archive.
package igra

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

// headerSentinel marks a record header line.
const headerSentinel = '#'

// Fixed character offsets in the record header.
const (
	hdrStationStart = 1
	hdrStationEnd   = 12
	hdrYearStart    = 13
	hdrYearEnd      = 17
	hdrMonthStart   = 18
	hdrMonthEnd     = 20
	hdrDayStart     = 21
	hdrDayEnd       = 23
	hdrHourStart    = 24
	hdrHourEnd      = 26
	hdrLevelsStart  = 32
	hdrLevelsEnd    = 36
	hdrLatStart     = 55
	hdrLatEnd       = 62
	hdrLonStart     = 63
	hdrLonEnd       = 71
)

// Fixed character offsets in a derived-profile level line, and the sentinel
// the archive writes for a missing value.
const (
	lvlHeightStart = 16
	lvlHeightEnd   = 23
	lvlRefrStart   = 144
	lvlRefrEnd     = 151
	missingValue   = -99999
)

type header struct {
	stationID string
	year      int
	month     int
	day       int
	hour      int
	levels    int
	lat       float64
	lon       float64
}

// ExtractDate scans a sounding file and returns every record whose calendar
// date matches target (ISO YYYY-MM-DD), in file order.
//
// The file is treated as a flat sequence of lines. A well-formed header
// advances the scan by its declared level count plus one, keeping the scan
// synchronized even for records whose dates do not match; a header that
// cannot be decoded advances by a single line so the records after it are
// still found. Level lines that cannot be decoded, or that lack a height or
// refractivity value, are skipped without aborting the record.
func ExtractDate(r io.Reader, target string, logger *slog.Logger) ([]domain.SoundingRecord, error) {
	wantYear, wantMonth, wantDay, err := splitDate(target)
	if err != nil {
		return nil, err
	}

	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var records []domain.SoundingRecord
	i := 0
	for i < len(lines) {
		line := lines[i]
		if len(line) == 0 || line[0] != headerSentinel {
			i++
			continue
		}

		hdr, err := parseHeader(line)
		if err != nil {
			logger.Warn("skipping malformed sounding header", "line_no", i+1, "error", err)
			i++
			continue
		}

		if hdr.year == wantYear && hdr.month == wantMonth && hdr.day == wantDay {
			rec := domain.SoundingRecord{
				StationID:  hdr.stationID,
				Date:       target,
				HourUTC:    hdr.hour,
				LevelCount: hdr.levels,
				Lat:        hdr.lat,
				Lon:        hdr.lon,
			}
			for j := i + 1; j <= i+hdr.levels && j < len(lines); j++ {
				if lvl, ok := parseLevel(lines[j]); ok {
					rec.Levels = append(rec.Levels, lvl)
				}
			}
			records = append(records, rec)
		}

		i += hdr.levels + 1
	}

	return records, nil
}

func parseHeader(line string) (header, error) {
	if len(line) < hdrLonEnd {
		return header{}, fmt.Errorf("header too short: %d chars", len(line))
	}

	year, err := field(line, hdrYearStart, hdrYearEnd)
	if err != nil {
		return header{}, fmt.Errorf("year: %w", err)
	}
	month, err := field(line, hdrMonthStart, hdrMonthEnd)
	if err != nil {
		return header{}, fmt.Errorf("month: %w", err)
	}
	day, err := field(line, hdrDayStart, hdrDayEnd)
	if err != nil {
		return header{}, fmt.Errorf("day: %w", err)
	}
	hour, err := field(line, hdrHourStart, hdrHourEnd)
	if err != nil {
		return header{}, fmt.Errorf("hour: %w", err)
	}
	levels, err := field(line, hdrLevelsStart, hdrLevelsEnd)
	if err != nil {
		return header{}, fmt.Errorf("level count: %w", err)
	}
	if levels < 0 {
		return header{}, fmt.Errorf("negative level count %d", levels)
	}
	latMilli, err := field(line, hdrLatStart, hdrLatEnd)
	if err != nil {
		return header{}, fmt.Errorf("latitude: %w", err)
	}
	lonMilli, err := field(line, hdrLonStart, hdrLonEnd)
	if err != nil {
		return header{}, fmt.Errorf("longitude: %w", err)
	}

	return header{
		stationID: strings.TrimSpace(line[hdrStationStart:hdrStationEnd]),
		year:      year,
		month:     month,
		day:       day,
		hour:      hour,
		levels:    levels,
		lat:       float64(latMilli) / 1000,
		lon:       float64(lonMilli) / 1000,
	}, nil
}

// parseLevel decodes one level line. A line that is too short, undecodable,
// or carries the missing-value sentinel in either field yields no Level: the
// sentinel means absent, never zero.
func parseLevel(line string) (domain.Level, bool) {
	if len(line) < lvlRefrEnd {
		return domain.Level{}, false
	}

	height, err := field(line, lvlHeightStart, lvlHeightEnd)
	if err != nil || height == missingValue {
		return domain.Level{}, false
	}
	refr, err := field(line, lvlRefrStart, lvlRefrEnd)
	if err != nil || refr == missingValue {
		return domain.Level{}, false
	}

	return domain.Level{HeightM: height, Refractivity: float64(refr)}, true
}

func field(line string, start, end int) (int, error) {
	return strconv.Atoi(strings.TrimSpace(line[start:end]))
}

func splitDate(date string) (year, month, day int, err error) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("bad date %q: want YYYY-MM-DD", date)
	}
	if year, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q: %w", date, err)
	}
	if month, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q: %w", date, err)
	}
	if day, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q: %w", date, err)
	}
	return year, month, day, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
