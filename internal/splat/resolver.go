package splat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

// ObstructionMarker is the substring whose presence in a trace output means
// the terrain blocks the direct path. Matched case-insensitively.
const ObstructionMarker = "obstruction detected"

// nodeQTHName is the file name of the receiving node's site descriptor.
const nodeQTHName = "endnode.qth"

// Status describes how a gateway's visibility was obtained.
type Status string

const (
	// StatusTraced means the external tracer ran for this call.
	StatusTraced Status = "traced"
	// StatusCached means an earlier run's trace artifact was reused; the
	// tracer was not invoked again.
	StatusCached Status = "cached"
	// StatusUnresolved means no usable trace output exists; the gateway
	// stays unknown and remains eligible for a future attempt.
	StatusUnresolved Status = "unresolved"
)

// Site is one endpoint of a terrain trace.
type Site struct {
	Name string
	Lat  float64
	Lon  float64
	AltM float64
}

// Resolver decides LOS/NLOS for gateways whose visibility is still unknown.
// Visibility is a property of the gateway's fixed position relative to the
// fixed node, so each gateway is traced at most once; the persisted trace
// artifact is the completion marker across runs.
type Resolver struct {
	tracer     TerrainTracer
	qthDir     string
	resultsDir string
	node       Site
	gatewayAlt float64
	logger     *slog.Logger
}

// NewResolver creates a Resolver. gatewayAlt is the assumed antenna height
// in meters for gateways, whose true mast heights are unknown.
func NewResolver(tracer TerrainTracer, qthDir, resultsDir string, node Site, gatewayAlt float64, logger *slog.Logger) *Resolver {
	return &Resolver{
		tracer:     tracer,
		qthDir:     qthDir,
		resultsDir: resultsDir,
		node:       node,
		gatewayAlt: gatewayAlt,
		logger:     logger,
	}
}

// Resolve returns the gateway's visibility. When a trace artifact already
// exists it is classified without re-invoking the tracer and the call
// reports StatusCached. A failed invocation or unreadable artifact yields
// VisibilityUnknown with StatusUnresolved — never a guessed LOS.
func (r *Resolver) Resolve(ctx context.Context, gw domain.GatewayGroup) (domain.Visibility, Status, error) {
	tracePath := filepath.Join(r.resultsDir, gw.ID+".txt")

	if out, err := os.ReadFile(tracePath); err == nil {
		vis, ok := classify(string(out))
		if !ok {
			r.logger.Warn("existing trace artifact is empty, leaving gateway unresolved", "gateway", gw.ID)
			return domain.VisibilityUnknown, StatusUnresolved, nil
		}
		return vis, StatusCached, nil
	}

	txQTH, err := r.ensureQTH(filepath.Join(r.qthDir, gw.ID+".qth"), Site{
		Name: gw.Name,
		Lat:  gw.Coords.Lat,
		Lon:  gw.Coords.Lon,
		AltM: r.gatewayAlt,
	})
	if err != nil {
		return domain.VisibilityUnknown, StatusUnresolved, err
	}
	rxQTH, err := r.ensureQTH(filepath.Join(r.qthDir, nodeQTHName), r.node)
	if err != nil {
		return domain.VisibilityUnknown, StatusUnresolved, err
	}

	out, err := r.tracer.Trace(ctx, txQTH, rxQTH)
	if err != nil {
		return domain.VisibilityUnknown, StatusUnresolved, err
	}

	vis, ok := classify(out)
	if !ok {
		r.logger.Warn("tracer produced empty output, leaving gateway unresolved", "gateway", gw.ID)
		return domain.VisibilityUnknown, StatusUnresolved, nil
	}

	if err := os.MkdirAll(r.resultsDir, 0o755); err != nil {
		return domain.VisibilityUnknown, StatusUnresolved, fmt.Errorf("create results dir: %w", err)
	}
	if err := os.WriteFile(tracePath, []byte(out), 0o644); err != nil {
		// The classification is sound but the completion marker is not on
		// disk; report unresolved so the next run re-traces instead of
		// trusting a mark that was never persisted.
		return domain.VisibilityUnknown, StatusUnresolved, fmt.Errorf("persist trace artifact: %w", err)
	}

	return vis, StatusTraced, nil
}

// ensureQTH materializes a four-line site descriptor file if it does not
// already exist, and returns its path.
func (r *Resolver) ensureQTH(path string, site Site) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create qth dir: %w", err)
	}
	content := fmt.Sprintf("%s\n%f\n%f\n%f", site.Name, site.Lat, site.Lon, site.AltM)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write qth file: %w", err)
	}
	return path, nil
}

// classify interprets trace output. Empty output carries no information and
// reports not-ok; otherwise the obstruction marker decides NLOS vs LOS.
func classify(out string) (domain.Visibility, bool) {
	if strings.TrimSpace(out) == "" {
		return domain.VisibilityUnknown, false
	}
	if strings.Contains(strings.ToLower(out), ObstructionMarker) {
		return domain.VisibilityNLOS, true
	}
	return domain.VisibilityLOS, true
}
