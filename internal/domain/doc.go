// Package domain models LoRa gateway reception data and the atmospheric
// quantities used to explain anomalous long-range reception.
//
// # Data Sources
//
// Gateway measurements arrive through the ingestion server as Helium /
// ChirpStack uplink payloads. Each uplink carries an rxInfo array with one
// entry per gateway that heard the frame; every entry becomes one row of the
// observation CSV log. Many rows share a (gateway, day) key; the pipeline
// works at that granularity and uses the first row's coordinates as the
// gateway position.
//
// Atmospheric profiles come from the NOAA IGRA radiosonde archive. A
// sounding is one balloon release at one station and hour; the derived
// per-level parameter files give, for each pressure level, the geopotential
// height in meters and the refractivity N. Files are fixed-width text:
//
//	header:  '#' sentinel, year [13:17], month [18:20], day [21:23],
//	         hour [24:26], level count [32:36]
//	level:   height [16:23], refractivity [144:151]
//
// The value -99999 (and -9999 in the observed-variable files) marks a missing
// field. Missing means absent, never zero: a level lacking height or
// refractivity is dropped from the profile.
//
// # Ducting
//
// Radio ducting occurs when the vertical refractivity gradient dN/dh falls
// below -157 N-units/km; the layer then bends rays back toward the surface
// and traps them, carrying signals far beyond the radio horizon. The
// threshold is a physical constant of the standard atmosphere model and is
// deliberately hard-coded: prior classification results depend on the exact
// value.
//
// A duct zone whose base sits at or below 100 m is surface-based; anything
// higher is elevated. Surface ducts are the ones that matter for
// ground-level gateways.
//
// # Visibility
//
// LOS/NLOS is a static property of a gateway's position relative to the fixed
// receiving node, decided once per gateway by an external terrain ray-trace
// and then applied to every observation row of that gateway. Ducting is only
// computed for NLOS gateways: reception without line of sight is the
// operationally interesting case.
package domain
