// Package pipeline ties station matching, sounding parsing, duct
// classification, visibility resolution, and the processing ledger into the
// batch correlation run.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/observability"
	"github.com/couchcryptid/duct-correlation-service/internal/splat"
	"github.com/couchcryptid/duct-correlation-service/internal/station"
)

// ObservationStore reads the measurement log and propagates resolved
// visibility back onto it.
type ObservationStore interface {
	Load() ([]domain.Observation, error)
	SetVisibility(gatewayID string, vis domain.Visibility) error
}

// StationIndex answers nearest-station queries.
type StationIndex interface {
	Nearest(p domain.Point) (station.Station, bool)
}

// StationProvider builds the station directory for a run. On source failure
// it returns an empty directory together with the error, so the run degrades
// to "no station found" instead of aborting.
type StationProvider interface {
	Directory(ctx context.Context) (StationIndex, error)
}

// SoundingSource returns a station's sounding records for an ISO date, in
// file order. Empty result with nil error means the archive has nothing for
// that date yet.
type SoundingSource interface {
	RecordsFor(ctx context.Context, stationID, date string) ([]domain.SoundingRecord, error)
}

// VisibilityResolver decides LOS/NLOS for a gateway.
type VisibilityResolver interface {
	Resolve(ctx context.Context, gw domain.GatewayGroup) (domain.Visibility, splat.Status, error)
}

// ArtifactStore persists duct profiles and the gateway link index.
type ArtifactStore interface {
	WriteProfile(p domain.DuctProfile) (string, error)
	LoadLinks() map[string]domain.GatewayLink
	SaveLinks(links map[string]domain.GatewayLink) error
}

// WorkLedger is the durable idempotency record over (gateway, date) units.
type WorkLedger interface {
	IsDone(subject, date string) bool
	MarkDone(subject, date string)
	Persist() error
}

// LinkPublisher ships updated link records to an external sink. Optional.
type LinkPublisher interface {
	PublishLinks(ctx context.Context, links map[string]domain.GatewayLink) error
}

// RunSummary describes the most recent completed correlation run.
type RunSummary struct {
	CompletedAt     time.Time `json:"completed_at"`
	Observations    int       `json:"observations"`
	Gateways        int       `json:"gateways"`
	ProfilesEmitted int       `json:"profiles_emitted"`
	DuctZones       int       `json:"duct_zones"`
}

// Driver runs the visibility pass and the ducting pass over the observation
// log. Strictly sequential: the ledger and artifact files are owned for the
// whole run and every failure is contained at the smallest unit (one
// gateway, one date).
type Driver struct {
	observations ObservationStore
	stations     StationProvider
	soundings    SoundingSource
	visibility   VisibilityResolver
	artifacts    ArtifactStore
	ledger       WorkLedger
	publisher    LinkPublisher // nil when publishing is disabled
	node         domain.Point
	logger       *slog.Logger
	metrics      *observability.Metrics
	lastRun      atomic.Pointer[RunSummary]
}

// New creates a Driver. publisher may be nil.
func New(
	observations ObservationStore,
	stations StationProvider,
	soundings SoundingSource,
	visibility VisibilityResolver,
	artifacts ArtifactStore,
	ledger WorkLedger,
	publisher LinkPublisher,
	node domain.Point,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Driver {
	return &Driver{
		observations: observations,
		stations:     stations,
		soundings:    soundings,
		visibility:   visibility,
		artifacts:    artifacts,
		ledger:       ledger,
		publisher:    publisher,
		node:         node,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (d *Driver) CheckReadiness(_ context.Context) error {
	if d.lastRun.Load() == nil {
		return errors.New("no correlation run has completed yet")
	}
	return nil
}

// LastRun returns the latest run's summary; ok is false before the first
// run completes.
func (d *Driver) LastRun() (RunSummary, bool) {
	s := d.lastRun.Load()
	if s == nil {
		return RunSummary{}, false
	}
	return *s, true
}

// Run executes one full correlation batch: visibility resolution for
// gateways still unknown, then ducting analysis for every NLOS gateway/day
// not already in the ledger. Nothing in a run is allowed to abort the batch;
// failures skip their unit and the ledger stays unmarked so the unit is
// retried next run.
func (d *Driver) Run(ctx context.Context) error {
	start := time.Now()
	d.metrics.PipelineRunning.Set(1)
	defer d.metrics.PipelineRunning.Set(0)

	obs, err := d.observations.Load()
	if err != nil {
		// An unreadable log means there is nothing to process this run, not
		// that the service is broken.
		d.logger.Error("observation log unreadable, skipping run", "error", err)
		return nil
	}

	groups := domain.GroupObservations(obs)
	d.logger.Info("run started", "observations", len(obs), "gateways", len(groups))

	groups = d.resolveVisibility(ctx, groups)
	profiles, zones := d.analyzeDucting(ctx, groups)

	if err := d.ledger.Persist(); err != nil {
		// Unpersisted marks cost recomputation next run; marks only happen
		// after success, so no result is ever lost.
		d.logger.Error("ledger persist failed", "error", err)
	}

	d.metrics.RunDuration.Observe(time.Since(start).Seconds())
	d.lastRun.Store(&RunSummary{
		CompletedAt:     domain.Clock().Now().UTC(),
		Observations:    len(obs),
		Gateways:        len(groups),
		ProfilesEmitted: profiles,
		DuctZones:       zones,
	})
	d.logger.Info("run finished", "duration", time.Since(start))
	return nil
}

// resolveVisibility traces every gateway whose visibility is still unknown
// and writes resolutions back to the observation log. Returns the groups
// with visibility updated in place.
func (d *Driver) resolveVisibility(ctx context.Context, groups []domain.GatewayGroup) []domain.GatewayGroup {
	for i, g := range groups {
		if g.Visibility != domain.VisibilityUnknown {
			continue
		}
		if ctx.Err() != nil {
			return groups
		}

		vis, status, err := d.visibility.Resolve(ctx, g)
		if err != nil {
			d.logger.Warn("visibility resolution failed", "gateway", g.ID, "error", err)
		}
		if vis == domain.VisibilityUnknown {
			d.metrics.VisibilityResolutions.WithLabelValues("unresolved", string(status)).Inc()
			continue
		}

		d.metrics.VisibilityResolutions.WithLabelValues(string(vis), string(status)).Inc()
		d.logger.Info("gateway visibility resolved", "gateway", g.ID, "visibility", vis, "source", status)

		if err := d.observations.SetVisibility(g.ID, vis); err != nil {
			d.logger.Error("visibility propagation failed", "gateway", g.ID, "error", err)
		}
		groups[i].Visibility = vis
	}
	return groups
}

// analyzeDucting runs the ducting pass: for every NLOS gateway/day not in
// the ledger, match the nearest station to the path midpoint, extract the
// day's sounding, classify duct zones, and emit the artifact and link. The
// ledger is marked only after the link index is saved; every skip path
// leaves the pair eligible for retry. Returns the count of profiles emitted
// and duct zones found.
func (d *Driver) analyzeDucting(ctx context.Context, groups []domain.GatewayGroup) (profiles, zones int) {
	index, err := d.stations.Directory(ctx)
	if err != nil {
		d.logger.Warn("station directory unavailable, ducting degraded", "error", err)
	}

	links := d.artifacts.LoadLinks()

	// Marks are deferred until the link index is durably saved, so the
	// ledger never calls a pair done whose artifact reference was lost.
	type unit struct{ gatewayID, date string }
	var completed []unit

	for _, g := range groups {
		switch g.Visibility {
		case domain.VisibilityLOS:
			// Ducting cannot explain anything a direct path already does.
			d.metrics.DuctDaysSkipped.WithLabelValues("los").Add(float64(len(g.Days)))
			continue
		case domain.VisibilityUnknown:
			d.metrics.DuctDaysSkipped.WithLabelValues("unknown_visibility").Add(float64(len(g.Days)))
			continue
		}

		for _, date := range g.Days {
			if ctx.Err() != nil {
				break
			}
			if d.ledger.IsDone(g.ID, date) {
				d.metrics.DuctDaysSkipped.WithLabelValues("ledger").Inc()
				continue
			}
			if z, ok := d.processDay(ctx, index, links, g, date); ok {
				completed = append(completed, unit{gatewayID: g.ID, date: date})
				profiles++
				zones += z
			}
		}
	}

	if len(completed) > 0 {
		if err := d.artifacts.SaveLinks(links); err != nil {
			d.logger.Error("link index save failed, leaving units unmarked", "error", err)
			return profiles, zones
		}
		for _, u := range completed {
			d.ledger.MarkDone(u.gatewayID, u.date)
		}
		d.publish(ctx, links)
	}
	return profiles, zones
}

// processDay handles one (gateway, date) unit. Reports the zones found and
// whether the profile artifact was written and the link updated; the caller
// marks the ledger once the index is saved.
func (d *Driver) processDay(ctx context.Context, index StationIndex, links map[string]domain.GatewayLink, g domain.GatewayGroup, date string) (int, bool) {
	mid := domain.SphericalMidpoint(g.Coords, d.node)

	st, ok := index.Nearest(mid)
	if !ok {
		d.metrics.DuctDaysSkipped.WithLabelValues("no_station").Inc()
		return 0, false
	}

	records, err := d.soundings.RecordsFor(ctx, st.ID, date)
	if err != nil {
		d.metrics.SoundingFetches.WithLabelValues("error").Inc()
		d.metrics.DuctDaysSkipped.WithLabelValues("fetch_error").Inc()
		d.logger.Warn("sounding retrieval failed", "gateway", g.ID, "station", st.ID, "date", date, "error", err)
		return 0, false
	}
	d.metrics.SoundingFetches.WithLabelValues("success").Inc()

	if len(records) == 0 {
		// The archive has not caught up to this date; leave the ledger
		// unmarked so a later run picks it up.
		d.metrics.DuctDaysSkipped.WithLabelValues("no_record").Inc()
		d.logger.Info("no sounding record for date", "station", st.ID, "date", date)
		return 0, false
	}

	// Multiple release hours may exist for the date; take the first in file
	// order.
	rec := records[0]
	gradients := domain.Gradients(rec.Levels)
	zones := domain.ClassifyDucts(gradients)

	profile := domain.DuctProfile{
		GatewayID:  g.ID,
		StationID:  st.ID,
		Date:       date,
		HourUTC:    rec.HourUTC,
		Gradients:  gradients,
		Zones:      zones,
		Category:   domain.Describe(zones),
		ProducedAt: domain.Clock().Now(),
	}

	ref, err := d.artifacts.WriteProfile(profile)
	if err != nil {
		d.logger.Error("duct profile write failed", "gateway", g.ID, "date", date, "error", err)
		return 0, false
	}

	link, exists := links[g.ID]
	if !exists {
		link = domain.GatewayLink{
			GatewayName:   g.Name,
			GatewayCoords: g.Coords.Coords(),
		}
	}
	if link.Graphs == nil {
		// A loaded index entry may predate any artifact for this gateway.
		link.Graphs = make(map[string]string)
	}
	link.StationID = st.ID
	link.StationCoords = st.Point().Coords()
	link.Midpoint = mid.Coords()
	link.UpdatedAt = domain.Clock().Now()
	link.Graphs[date] = ref
	links[g.ID] = link

	d.metrics.DuctDaysProcessed.Inc()
	d.metrics.DuctZonesFound.Add(float64(len(zones)))
	d.logger.Info("duct profile produced",
		"gateway", g.ID, "station", st.ID, "date", date,
		"zones", len(zones), "category", profile.Category)
	return len(zones), true
}

func (d *Driver) publish(ctx context.Context, links map[string]domain.GatewayLink) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishLinks(ctx, links); err != nil {
		d.logger.Error("link publish failed", "error", err)
	}
}
