package domain

// Level is one usable point of a vertical profile: geopotential height in
// meters and refractivity in N-units. Levels with a missing height or
// refractivity never become Levels; the sentinel values are filtered out at
// parse time, not coerced to zero.
type Level struct {
	HeightM      int
	Refractivity float64
}

// SoundingRecord is one atmospheric profile: a single balloon release at one
// station, date, and hour. Levels are ordered ascending by height.
type SoundingRecord struct {
	StationID  string
	Date       string // ISO YYYY-MM-DD
	HourUTC    int
	LevelCount int // level count declared by the file header
	Lat        float64
	Lon        float64
	Levels     []Level
}
