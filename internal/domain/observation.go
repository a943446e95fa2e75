package domain

import (
	"sort"
	"time"
)

// Visibility is the terrain classification of a gateway relative to the
// receiving node. It is a property of the gateway's fixed position, not of an
// individual reading.
type Visibility string

const (
	VisibilityLOS     Visibility = "LOS"
	VisibilityNLOS    Visibility = "NLOS"
	VisibilityUnknown Visibility = "unknown"
)

// ParseVisibility maps a stored visibility string to its enum value.
// Anything other than the two resolved states (including the "N/A" written by
// the ingestion server) reads as unknown.
func ParseVisibility(s string) Visibility {
	switch s {
	case string(VisibilityLOS):
		return VisibilityLOS
	case string(VisibilityNLOS):
		return VisibilityNLOS
	default:
		return VisibilityUnknown
	}
}

// Observation is one measurement row from the gateway log: a single gateway's
// reception of a single uplink frame.
type Observation struct {
	Timestamp   time.Time
	GatewayID   string
	GatewayName string
	Gateway     Point
	Node        Point
	DistanceKm  float64
	RSSI        int
	SNR         float64
	Visibility  Visibility
}

// Day returns the observation's UTC calendar date in ISO form.
func (o Observation) Day() string {
	return o.Timestamp.UTC().Format("2006-01-02")
}

// GatewayGroup collapses a gateway's observation rows into the unit the
// pipeline operates on: one gateway, its representative coordinates, and the
// distinct days on which it reported.
type GatewayGroup struct {
	ID         string
	Name       string
	Coords     Point
	Visibility Visibility
	Days       []string
}

// GroupObservations groups rows by gateway ID, keeping the first row's
// coordinates and name as representative and collecting sorted distinct days.
// Group order follows first appearance in the log.
func GroupObservations(obs []Observation) []GatewayGroup {
	byID := make(map[string]*GatewayGroup)
	seen := make(map[string]map[string]bool)
	var order []string

	for _, o := range obs {
		g, ok := byID[o.GatewayID]
		if !ok {
			g = &GatewayGroup{
				ID:         o.GatewayID,
				Name:       o.GatewayName,
				Coords:     o.Gateway,
				Visibility: o.Visibility,
			}
			byID[o.GatewayID] = g
			seen[o.GatewayID] = make(map[string]bool)
			order = append(order, o.GatewayID)
		}
		if o.Visibility != VisibilityUnknown {
			g.Visibility = o.Visibility
		}
		if day := o.Day(); !seen[o.GatewayID][day] {
			seen[o.GatewayID][day] = true
			g.Days = append(g.Days, day)
		}
	}

	groups := make([]GatewayGroup, 0, len(order))
	for _, id := range order {
		g := byID[id]
		sort.Strings(g.Days)
		groups = append(groups, *g)
	}
	return groups
}
