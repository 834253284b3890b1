// Package runtime carries the process-wide state spec.md §9 flags as
// globals in the original C++ source (ticks-per-ms, ns-per-tick, verbose
// flag, and, through the platform's topology, the NUMA node count) as a
// single explicit Context, constructed once in cmd/xmembench/main.go and
// passed to the benchmark drivers and workers.
package runtime

import (
	"log/slog"

	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/timer"
)

// Context bundles everything downstream components need that would
// otherwise be a package-level global. The benchmark-numbering counter
// spec.md §9 also calls out as a process-wide global lives in
// internal/config.Build instead: it's seeded from Options.BaseTestIndex
// (--base_test_index) and owned by the configurator since it's the only
// component that assigns benchmark numbers.
type Context struct {
	Platform    platform.Platform
	Calibration timer.Calibration
	Logger      *slog.Logger
	Verbose     bool
}

// New builds a Context, calibrating the timer once against plat.
func New(plat platform.Platform, logger *slog.Logger, verbose bool) (*Context, error) {
	cal, err := timer.Calibrate(plat)
	if err != nil {
		return nil, err
	}
	return &Context{
		Platform:    plat,
		Calibration: cal,
		Logger:      logger,
		Verbose:     verbose,
	}, nil
}
