package domain

import "time"

// GatewayLink is the externally consumed summary of which gateway correlates
// with which sounding station, and which dates have a duct-profile artifact.
// The artifact index is keyed by gateway ID; Graphs maps ISO dates to
// artifact references.
type GatewayLink struct {
	GatewayName   string            `json:"gateway_name"`
	GatewayCoords [2]float64        `json:"gateway_coords"`
	StationID     string            `json:"station_id"`
	StationCoords [2]float64        `json:"station_coords"`
	Midpoint      [2]float64        `json:"midpoint"`
	Graphs        map[string]string `json:"graphs"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DuctProfile is the per gateway/date artifact payload: the full gradient
// series with its classified zones and summary category.
type DuctProfile struct {
	GatewayID  string       `json:"gateway_id"`
	StationID  string       `json:"station_id"`
	Date       string       `json:"date"`
	HourUTC    int          `json:"hour_utc"`
	Gradients  []Gradient   `json:"gradients"`
	Zones      []DuctZone   `json:"zones"`
	Category   DuctCategory `json:"category"`
	ProducedAt time.Time    `json:"produced_at"`
}
