package worker

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/runtime"
	"github.com/jaml/xmembench/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform is a deterministic, syscall-free stand-in for
// platform.Platform so worker tests run on any OS without real affinity or
// huge-page support.
type fakePlatform struct {
	tick atomic.Uint64
	topo platform.Topology
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{topo: platform.NewTopology(4, 1, 4096, 0, nil)}
}

func (f *fakePlatform) StartTimer() uint64 { return f.tick.Add(1000) }
func (f *fakePlatform) StopTimer() uint64  { return f.tick.Add(1000) }
func (f *fakePlatform) PinToCPU(int) bool  { return true }
func (f *fakePlatform) UnpinThread() bool  { return true }
func (f *fakePlatform) BoostPriority() bool { return true }
func (f *fakePlatform) RevertPriority()     {}
func (f *fakePlatform) AllocRegion(bytes int, _ int, _ bool) (*platform.Region, error) {
	return &platform.Region{Bytes: make([]byte, bytes)}, nil
}
func (f *fakePlatform) FreeRegion(*platform.Region) {}
func (f *fakePlatform) Topology() platform.Topology { return f.topo }

func testContext(t *testing.T) *runtime.Context {
	t.Helper()
	plat := newFakePlatform()
	ctx, err := runtime.New(plat, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)
	// Shrink the measurement window so tests run fast: the real
	// calibration sleeps a full second, which would make every worker
	// test take BenchmarkDurationMS worth of wall time otherwise.
	ctx.Calibration = timer.Calibration{TicksPerMs: 1, NsPerTick: 1}
	return ctx
}

func TestWorkerRunSequential(t *testing.T) {
	ctx := testContext(t)
	desc := kernel.KernelDesc{Width: kernel.Width64, Stride: 1, Direction: kernel.Forward, Mode: kernel.Read, Pattern: kernel.Sequential}
	region := make([]byte, kernel.BytesPerPass*4)

	w := New(Config{
		Region:      region,
		CPUAffinity: 0,
		Live:        kernel.NewSequential(desc),
		Dummy:       kernel.NewSequentialDummy(desc),
		Ctx:         ctx,
	})
	require.NoError(t, w.Run())

	res := w.Result()
	assert.True(t, res.Completed)
	assert.Greater(t, res.Passes, uint64(0))
	assert.Equal(t, uint64(0), res.Passes%kernel.UnrollFactor)
	assert.GreaterOrEqual(t, res.ElapsedTicks, res.ElapsedDummyTicks)
}

func TestWorkerRunTwiceErrors(t *testing.T) {
	ctx := testContext(t)
	desc := kernel.KernelDesc{Width: kernel.Width64, Stride: 1, Direction: kernel.Forward, Mode: kernel.Read, Pattern: kernel.Sequential}
	region := make([]byte, kernel.BytesPerPass*4)

	w := New(Config{
		Region: region,
		Live:   kernel.NewSequential(desc),
		Dummy:  kernel.NewSequentialDummy(desc),
		Ctx:    ctx,
	})
	require.NoError(t, w.Run())
	assert.ErrorIs(t, w.Run(), ErrAlreadyRun)
}

func TestWorkerRunRandom(t *testing.T) {
	ctx := testContext(t)
	desc := kernel.KernelDesc{Width: kernel.Width64, Mode: kernel.Read, Pattern: kernel.Random}
	region := make([]byte, kernel.BytesPerPass*8)

	w := New(Config{
		Region:    region,
		Live:      kernel.NewRandom(desc, 1),
		Dummy:     kernel.NewRandomDummy(desc, 1),
		ChainSeed: 0,
		Ctx:       ctx,
	})
	require.NoError(t, w.Run())
	assert.True(t, w.Result().Completed)
}
