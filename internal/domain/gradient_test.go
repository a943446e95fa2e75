package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradients_UniformLapse(t *testing.T) {
	levels := []Level{
		{HeightM: 0, Refractivity: 300.0},
		{HeightM: 100, Refractivity: 280.0},
		{HeightM: 200, Refractivity: 260.0},
	}

	got := Gradients(levels)

	want := []Gradient{
		{HeightM: 0, PerKm: -200.0},
		{HeightM: 100, PerKm: -200.0},
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestGradients_SkipsRepeatedHeight(t *testing.T) {
	levels := []Level{
		{HeightM: 0, Refractivity: 300.0},
		{HeightM: 0, Refractivity: 298.0},
		{HeightM: 100, Refractivity: 280.0},
	}

	got := Gradients(levels)

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].HeightM)
	assert.InDelta(t, -180.0, got[0].PerKm, 1e-9)
}

func TestGradients_TooFewLevels(t *testing.T) {
	assert.Nil(t, Gradients(nil))
	assert.Nil(t, Gradients([]Level{{HeightM: 0, Refractivity: 300}}))
}

func TestClassifyDucts_NoneWhenAboveThreshold(t *testing.T) {
	gradients := []Gradient{
		{HeightM: 0, PerKm: -40},
		{HeightM: 100, PerKm: -50},
		{HeightM: 200, PerKm: -39},
	}

	zones := ClassifyDucts(gradients)

	assert.Empty(t, zones)
	assert.Equal(t, DuctNone, Describe(zones))
}

func TestClassifyDucts_SingleZoneBoundedByPredecessor(t *testing.T) {
	gradients := []Gradient{
		{HeightM: 50, PerKm: -40},
		{HeightM: 150, PerKm: -200},
		{HeightM: 300, PerKm: -45},
	}

	zones := ClassifyDucts(gradients)

	require.Len(t, zones, 1)
	assert.Equal(t, 50, zones[0].StartHeightM)
	assert.Equal(t, 150, zones[0].EndHeightM)
	assert.InDelta(t, -200.0, zones[0].Gradient, 1e-9)
}

func TestClassifyDucts_FirstGradientNeverOpensZone(t *testing.T) {
	// The scan starts at the second gradient, so a sub-threshold value in
	// the first slot alone produces no zone.
	gradients := []Gradient{
		{HeightM: 0, PerKm: -300},
		{HeightM: 100, PerKm: -40},
	}

	assert.Empty(t, ClassifyDucts(gradients))
}

func TestClassifyDucts_MultipleZones(t *testing.T) {
	gradients := []Gradient{
		{HeightM: 0, PerKm: -40},
		{HeightM: 50, PerKm: -220},
		{HeightM: 400, PerKm: -45},
		{HeightM: 800, PerKm: -180.5},
	}

	zones := ClassifyDucts(gradients)

	require.Len(t, zones, 2)
	assert.Equal(t, 0, zones[0].StartHeightM)
	assert.Equal(t, 50, zones[0].EndHeightM)
	assert.Equal(t, 400, zones[1].StartHeightM)
	assert.Equal(t, 800, zones[1].EndHeightM)
}

func TestDuctZone_SurfaceBased(t *testing.T) {
	assert.True(t, DuctZone{StartHeightM: 0, EndHeightM: 80}.SurfaceBased())
	assert.True(t, DuctZone{StartHeightM: 100, EndHeightM: 200}.SurfaceBased())
	assert.False(t, DuctZone{StartHeightM: 101, EndHeightM: 200}.SurfaceBased())
	assert.False(t, DuctZone{StartHeightM: 500, EndHeightM: 700}.SurfaceBased())
}

func TestDescribe_Categories(t *testing.T) {
	surface := DuctZone{StartHeightM: 0, EndHeightM: 80}
	elevated := DuctZone{StartHeightM: 500, EndHeightM: 700}

	tests := []struct {
		name  string
		zones []DuctZone
		want  DuctCategory
	}{
		{"no zones", nil, DuctNone},
		{"surface only", []DuctZone{surface}, DuctSurfaceOnly},
		{"elevated only", []DuctZone{elevated}, DuctElevated},
		{"both", []DuctZone{surface, elevated}, DuctMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.zones))
		})
	}
}
