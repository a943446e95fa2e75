package igra

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// headerLine renders a record header with each field at its documented
// offset. Coordinates are given in millidegrees, as in the archive.
func headerLine(station string, year, month, day, hour, levels, latMilli, lonMilli int) string {
	return fmt.Sprintf("#%-11s %4d %2d %2d %2d%6s%4d%19s%7d %8d",
		station, year, month, day, hour, "", levels, "", latMilli, lonMilli)
}

// levelLine renders a derived-profile level line carrying only the height
// and refractivity columns.
func levelLine(heightM, refractivity int) string {
	return fmt.Sprintf("%16s%7d%121s%7d", "", heightM, "", refractivity)
}

func TestExtractDate_MatchingRecord(t *testing.T) {
	file := strings.Join([]string{
		headerLine("ITM00016044", 2026, 2, 11, 0, 3, 46034, 13186),
		levelLine(0, 320),
		levelLine(100, 300),
		levelLine(200, 285),
	}, "\n")

	records, err := ExtractDate(strings.NewReader(file), "2026-02-11", discardLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "ITM00016044", rec.StationID)
	assert.Equal(t, "2026-02-11", rec.Date)
	assert.Equal(t, 0, rec.HourUTC)
	assert.Equal(t, 3, rec.LevelCount)
	assert.InDelta(t, 46.034, rec.Lat, 1e-9)
	assert.InDelta(t, 13.186, rec.Lon, 1e-9)

	want := []domain.Level{
		{HeightM: 0, Refractivity: 320},
		{HeightM: 100, Refractivity: 300},
		{HeightM: 200, Refractivity: 285},
	}
	require.Empty(t, cmp.Diff(want, rec.Levels))
}

func TestExtractDate_SkipsNonMatchingDates(t *testing.T) {
	file := strings.Join([]string{
		headerLine("ITM00016044", 2026, 2, 10, 12, 2, 46034, 13186),
		levelLine(0, 320),
		levelLine(100, 300),
		headerLine("ITM00016044", 2026, 2, 11, 0, 1, 46034, 13186),
		levelLine(0, 315),
		headerLine("ITM00016044", 2026, 2, 12, 0, 1, 46034, 13186),
		levelLine(0, 310),
	}, "\n")

	records, err := ExtractDate(strings.NewReader(file), "2026-02-11", discardLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].HourUTC)
	require.Len(t, records[0].Levels, 1)
	assert.Equal(t, 315.0, records[0].Levels[0].Refractivity)
}

func TestExtractDate_MultipleRecordsSameDay(t *testing.T) {
	file := strings.Join([]string{
		headerLine("ITM00016044", 2026, 2, 11, 0, 1, 46034, 13186),
		levelLine(0, 315),
		headerLine("ITM00016044", 2026, 2, 11, 12, 1, 46034, 13186),
		levelLine(0, 318),
	}, "\n")

	records, err := ExtractDate(strings.NewReader(file), "2026-02-11", discardLogger())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].HourUTC)
	assert.Equal(t, 12, records[1].HourUTC)
}

func TestExtractDate_MalformedHeaderDoesNotDesync(t *testing.T) {
	file := strings.Join([]string{
		headerLine("ITM00016044", 2026, 2, 11, 0, 1, 46034, 13186),
		levelLine(0, 315),
		"#garbage",
		headerLine("ITM00016044", 2026, 2, 11, 12, 1, 46034, 13186),
		levelLine(0, 318),
	}, "\n")

	records, err := ExtractDate(strings.NewReader(file), "2026-02-11", discardLogger())

	require.NoError(t, err)

	// Both records around the undecodable header are recovered.
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].HourUTC)
	assert.Equal(t, 12, records[1].HourUTC)
	require.Len(t, records[0].Levels, 1)
	assert.Equal(t, 315.0, records[0].Levels[0].Refractivity)
	require.Len(t, records[1].Levels, 1)
	assert.Equal(t, 318.0, records[1].Levels[0].Refractivity)
}

func TestExtractDate_MissingValueSentinelDropsLevel(t *testing.T) {
	file := strings.Join([]string{
		headerLine("ITM00016044", 2026, 2, 11, 0, 3, 46034, 13186),
		levelLine(0, 315),
		levelLine(100, -99999),
		levelLine(-99999, 300),
	}, "\n")

	records, err := ExtractDate(strings.NewReader(file), "2026-02-11", discardLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Levels, 1)
	assert.Equal(t, 3, records[0].LevelCount)
}

func TestExtractDate_TruncatedFinalRecord(t *testing.T) {
	file := strings.Join([]string{
		headerLine("ITM00016044", 2026, 2, 11, 0, 5, 46034, 13186),
		levelLine(0, 315),
		levelLine(100, 300),
	}, "\n")

	records, err := ExtractDate(strings.NewReader(file), "2026-02-11", discardLogger())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Levels, 2)
}

func TestExtractDate_BadTargetDate(t *testing.T) {
	_, err := ExtractDate(strings.NewReader(""), "11/02/2026", discardLogger())
	assert.Error(t, err)
}

func TestExtractDate_EmptyFile(t *testing.T) {
	records, err := ExtractDate(strings.NewReader(""), "2026-02-11", discardLogger())

	require.NoError(t, err)
	assert.Empty(t, records)
}
