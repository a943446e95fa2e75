package domain

// DuctingThreshold is the refractivity gradient below which a layer traps
// radio waves, in N-units per kilometer. Physical constant; prior
// classification results depend on this exact value, so it is not
// configurable.
const DuctingThreshold = -157.0

// surfaceDuctCeilingM is the maximum base height of a surface-based duct.
const surfaceDuctCeilingM = 100

// Gradient is the refractivity lapse between two adjacent profile levels,
// anchored to the lower level's height and scaled to N-units per kilometer.
type Gradient struct {
	HeightM int     `json:"height_m"`
	PerKm   float64 `json:"dn_dh_per_km"`
}

// DuctZone is a height interval whose gradient falls below the ducting
// threshold.
type DuctZone struct {
	StartHeightM int     `json:"height_start_m"`
	EndHeightM   int     `json:"height_end_m"`
	Gradient     float64 `json:"gradient_per_km"`
}

// SurfaceBased reports whether the zone's base is low enough to trap
// ground-level propagation.
func (z DuctZone) SurfaceBased() bool {
	return z.StartHeightM <= surfaceDuctCeilingM
}

// Gradients converts a profile (ascending by height) into adjacent-pair
// refractivity gradients. Source heights are meters, so the lapse is scaled
// by 1000 to per-kilometer units. A pair of levels at identical heights has
// no defined gradient and is skipped.
func Gradients(levels []Level) []Gradient {
	var out []Gradient
	for i := 1; i < len(levels); i++ {
		lo, hi := levels[i-1], levels[i]
		if hi.HeightM == lo.HeightM {
			continue
		}
		out = append(out, Gradient{
			HeightM: lo.HeightM,
			PerKm:   (hi.Refractivity - lo.Refractivity) / float64(hi.HeightM-lo.HeightM) * 1000,
		})
	}
	return out
}

// ClassifyDucts scans adjacent gradient pairs and emits a zone wherever the
// second gradient of a pair falls below the ducting threshold. The zone is
// bounded by the previous gradient's height and the triggering gradient's
// height. Anchoring to the predecessor is a compatibility requirement: the
// reported zone boundaries of prior runs follow this convention, so a
// single sub-threshold gradient yields a zone ending at its own height, not
// starting there.
func ClassifyDucts(gradients []Gradient) []DuctZone {
	var zones []DuctZone
	for i := 1; i < len(gradients); i++ {
		if gradients[i].PerKm < DuctingThreshold {
			zones = append(zones, DuctZone{
				StartHeightM: gradients[i-1].HeightM,
				EndHeightM:   gradients[i].HeightM,
				Gradient:     gradients[i].PerKm,
			})
		}
	}
	return zones
}

// DuctCategory is the narrative classification of a profile's duct zones.
type DuctCategory string

const (
	DuctNone        DuctCategory = "none"
	DuctSurfaceOnly DuctCategory = "surface-based"
	DuctElevated    DuctCategory = "elevated"
	DuctMixed       DuctCategory = "mixed"
)

// Describe maps a zone set to its human-readable category. It is a summary
// label, not a numeric feature.
func Describe(zones []DuctZone) DuctCategory {
	var surface, elevated bool
	for _, z := range zones {
		if z.SurfaceBased() {
			surface = true
		} else {
			elevated = true
		}
	}
	switch {
	case surface && elevated:
		return DuctMixed
	case surface:
		return DuctSurfaceOnly
	case elevated:
		return DuctElevated
	default:
		return DuctNone
	}
}
