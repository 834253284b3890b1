// Package timer derives the process-wide tick calibration described in
// spec.md §4.2: ticks-per-ms and ns-per-tick, computed once at startup by
// timing a millisecond-scale sleep against the platform tick counter.
package timer

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jaml/xmembench/internal/platform"
)

// BenchmarkDurationMS is the default per-worker measurement window. The
// calibration sleep uses the separate calibrationIntervalMS below.
const BenchmarkDurationMS = 250

// calibrationIntervalMS is long enough that timer jitter from the sleep call
// itself is negligible relative to the measured interval.
const calibrationIntervalMS = 1000

// Calibration holds the two process-wide constants every downstream
// component (workers, benchmarks) treats as read-only after startup.
type Calibration struct {
	TicksPerMs float64
	NsPerTick  float64
}

// Calibrate samples the platform timer across a fixed sleep interval and
// derives ticks-per-ms / ns-per-tick. When /sys exposes a direct TSC
// frequency (some Linux distributions export tsc_freq_khz), that value is
// used directly instead of timing a sleep, per spec.md §4.2's "on platforms
// exposing a direct performance-counter frequency, use that instead".
func Calibrate(t platform.Timer) (Calibration, error) {
	if khz, ok := tscFreqKHz(); ok {
		ticksPerMs := khz
		return Calibration{
			TicksPerMs: ticksPerMs,
			NsPerTick:  1e6 / ticksPerMs,
		}, nil
	}

	start := t.StartTimer()
	time.Sleep(calibrationIntervalMS * time.Millisecond)
	stop := t.StopTimer()

	deltaTicks := stop - start
	if deltaTicks == 0 {
		return Calibration{}, fmt.Errorf("timer: zero tick delta across %dms calibration sleep", calibrationIntervalMS)
	}

	ticksPerMs := float64(deltaTicks) / float64(calibrationIntervalMS)
	return Calibration{
		TicksPerMs: ticksPerMs,
		NsPerTick:  1e6 / ticksPerMs,
	}, nil
}

// tscFreqKHz reads /sys/devices/system/cpu/cpu0/tsc_freq_khz when the kernel
// exposes it, avoiding the sleep-based calibration entirely.
func tscFreqKHz() (float64, bool) {
	b, err := os.ReadFile("/sys/devices/system/cpu/cpu0/tsc_freq_khz")
	if err != nil {
		return 0, false
	}
	khz, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil || khz <= 0 {
		return 0, false
	}
	return khz, true
}

// DurationMS converts a tick span (using this calibration) to milliseconds.
func (c Calibration) DurationMS(ticks uint64) float64 {
	return float64(ticks) * c.NsPerTick / 1e6
}

// DurationNs converts a tick span to nanoseconds.
func (c Calibration) DurationNs(ticks uint64) float64 {
	return float64(ticks) * c.NsPerTick
}

// TargetTicks returns the tick count corresponding to BenchmarkDurationMS,
// i.e. the T_target of spec.md §4.5 step 5.
func (c Calibration) TargetTicks() uint64 {
	return uint64(c.TicksPerMs * BenchmarkDurationMS)
}
