package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrationConversions(t *testing.T) {
	c := Calibration{TicksPerMs: 1000, NsPerTick: 1000}
	assert.Equal(t, 1.0, c.DurationMS(1000))
	assert.Equal(t, 1_000_000.0, c.DurationNs(1000))
	assert.Equal(t, uint64(1000*BenchmarkDurationMS), c.TargetTicks())
}

func TestCalibrateRejectsZeroDelta(t *testing.T) {
	_, err := Calibrate(&zeroTimer{})
	assert.Error(t, err)
}

type zeroTimer struct{}

func (z *zeroTimer) StartTimer() uint64 { return 42 }
func (z *zeroTimer) StopTimer() uint64  { return 42 }
