package artifact

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteProfile_RefRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, discardLogger())
	profile := domain.DuctProfile{
		GatewayID: "gw-1",
		StationID: "ITM00016044",
		Date:      "2026-02-11",
		HourUTC:   0,
		Gradients: []domain.Gradient{{HeightM: 0, PerKm: -40}, {HeightM: 50, PerKm: -200}},
		Zones:     []domain.DuctZone{{StartHeightM: 0, EndHeightM: 50, Gradient: -200}},
		Category:  domain.DuctSurfaceOnly,
	}

	ref, err := store.WriteProfile(profile)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("profiles", "gw-1_2026-02-11.json"), ref)

	raw, err := os.ReadFile(filepath.Join(root, ref))
	require.NoError(t, err)
	var got domain.DuctProfile
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Empty(t, cmp.Diff(profile, got))
}

func TestLoadLinks_MissingIndexIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), discardLogger())

	assert.Empty(t, store.LoadLinks())
}

func TestLoadLinks_CorruptIndexIsEmpty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "links.json"), []byte("{oops"), 0o644))
	store := NewStore(root, discardLogger())

	assert.Empty(t, store.LoadLinks())
}

func TestSaveLinks_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "artifacts"), discardLogger())
	links := map[string]domain.GatewayLink{
		"gw-1": {
			GatewayName:   "hilltop",
			GatewayCoords: [2]float64{45.704, 13.72},
			StationID:     "ITM00016044",
			StationCoords: [2]float64{46.034, 13.186},
			Midpoint:      [2]float64{45.87, 13.45},
			Graphs:        map[string]string{"2026-02-11": "profiles/gw-1_2026-02-11.json"},
			UpdatedAt:     time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, store.SaveLinks(links))

	got := store.LoadLinks()
	require.Empty(t, cmp.Diff(links, got))
}
