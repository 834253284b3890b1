// Package power defines the pluggable periodic power sampler interface of
// spec.md §4.8/C8. The core treats every Sampler as opaque and tolerates a
// failing one with a warning; it never depends on a concrete
// implementation directly.
package power

import "time"

// Sample is one (timestamp, watts) observation.
type Sample struct {
	At    time.Time
	Watts float64
}

// Sampler is attached to a benchmark iteration: the driver calls Start
// before iteration work begins and Stop after it ends. Samples returns the
// observations since the last Start; the benchmark drivers do not read it,
// so no samples are recorded with an iteration's result.
type Sampler interface {
	Start() error
	Stop() error
	Samples() []Sample
}

// Noop is the default Sampler when no power sampler is configured: every
// method is a successful no-op, so driver code never needs a nil check.
type Noop struct{}

func (Noop) Start() error      { return nil }
func (Noop) Stop() error       { return nil }
func (Noop) Samples() []Sample { return nil }

var _ Sampler = Noop{}
