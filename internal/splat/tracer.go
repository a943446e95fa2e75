// Package splat resolves gateway line-of-sight by driving an external
// terrain ray-tracing tool and classifying its trace output.
package splat

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// TerrainTracer runs a terrain profile between two site descriptor files and
// returns the tool's textual trace output. The computation itself is a black
// box; this package only interprets its text.
type TerrainTracer interface {
	Trace(ctx context.Context, txQTH, rxQTH string) (string, error)
}

// ExecTracer invokes the SPLAT! binary in terrain-profile mode. The working
// directory must contain the SRTM terrain tiles the tool expects.
type ExecTracer struct {
	binary  string
	workDir string
	logger  *slog.Logger
}

// NewExecTracer creates an ExecTracer for the given binary and terrain
// directory.
func NewExecTracer(binary, workDir string, logger *slog.Logger) *ExecTracer {
	return &ExecTracer{binary: binary, workDir: workDir, logger: logger}
}

// Trace runs the tool once and returns its stdout. A nonzero exit or missing
// binary is a tool invocation failure; the caller leaves the gateway
// unresolved rather than guessing.
func (t *ExecTracer) Trace(ctx context.Context, txQTH, rxQTH string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary, "-d", txQTH, rxQTH)
	cmd.Dir = t.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug("invoking terrain tracer", "tx", txQTH, "rx", rxQTH)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("terrain tracer failed: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.String(), nil
}
