package bench

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/internal/runtime"
	"github.com/jaml/xmembench/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform is a syscall-free stand-in for platform.Platform so
// benchmark driver tests run on any OS. Its ticks are monotonic nanoseconds
// since fakeEpoch, so a live kernel span and its dummy span differ by the
// work each kernel really does and the adjusted ticks are non-zero.
type fakePlatform struct {
	topo platform.Topology
}

var fakeEpoch = time.Now()

func newFakePlatform() *fakePlatform {
	return &fakePlatform{topo: platform.NewTopology(4, 1, 4096, 0, nil)}
}

func (f *fakePlatform) StartTimer() uint64  { return uint64(time.Since(fakeEpoch)) }
func (f *fakePlatform) StopTimer() uint64   { return uint64(time.Since(fakeEpoch)) }
func (f *fakePlatform) PinToCPU(int) bool   { return true }
func (f *fakePlatform) UnpinThread() bool   { return true }
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
	ctx.Calibration = timer.Calibration{TicksPerMs: 1, NsPerTick: 1}
	return ctx
}

func testRegistry() *kernel.Registry {
	return kernel.Build(
		[]kernel.Width{kernel.Width64},
		[]int{1},
		[]int{1, 2},
		nil,
		true,
	)
}

func TestThroughputBenchmarkRun(t *testing.T) {
	ctx := testContext(t)
	plat := newFakePlatform()
	reg := testRegistry()

	spec := Spec{
		Kind:                Throughput,
		NumWorkers:          2,
		WorkingSetPerThread: kernel.BytesPerPass * 4,
		Iterations:          2,
		Desc:                kernel.KernelDesc{Width: kernel.Width64, Stride: 1, Direction: kernel.Forward, Mode: kernel.Read, Pattern: kernel.Sequential},
	}
	b, err := New(spec)
	require.NoError(t, err)

	require.NoError(t, b.RunThroughput(ctx, reg, plat, power.Noop{}))

	assert.True(t, b.HasRun())
	assert.Len(t, b.Iterations(), 2)
	assert.Greater(t, b.MeanPrimary(), 0.0)
	_, hasSecondary := b.MeanSecondary()
	assert.False(t, hasSecondary)
}

func TestThroughputBenchmarkRejectsSecondRun(t *testing.T) {
	ctx := testContext(t)
	plat := newFakePlatform()
	reg := testRegistry()

	spec := Spec{
		Kind:                Throughput,
		NumWorkers:          1,
		WorkingSetPerThread: kernel.BytesPerPass * 4,
		Iterations:          1,
		Desc:                kernel.KernelDesc{Width: kernel.Width64, Stride: 1, Direction: kernel.Forward, Mode: kernel.Read, Pattern: kernel.Sequential},
	}
	b, err := New(spec)
	require.NoError(t, err)

	require.NoError(t, b.RunThroughput(ctx, reg, plat, power.Noop{}))
	assert.ErrorIs(t, b.RunThroughput(ctx, reg, plat, power.Noop{}), ErrAlreadyRun)
}

func TestLatencyBenchmarkRun(t *testing.T) {
	ctx := testContext(t)
	plat := newFakePlatform()
	reg := testRegistry()

	spec := Spec{
		Kind:                Latency,
		NumWorkers:          1,
		WorkingSetPerThread: kernel.BytesPerPass * 8,
		Iterations:          1,
		Desc:                kernel.KernelDesc{Width: kernel.Width64, Mode: kernel.Read, Pattern: kernel.Random},
		MLP:                 1,
	}
	b, err := New(spec)
	require.NoError(t, err)

	require.NoError(t, b.RunLatency(ctx, reg, plat, power.Noop{}))
	assert.Greater(t, b.MeanPrimary(), 0.0)
}

func TestNewRejectsLoadedLatencyWithOneWorker(t *testing.T) {
	_, err := New(Spec{Kind: LoadedLatency, NumWorkers: 1})
	assert.ErrorIs(t, err, ErrTooFewWorkers)
}

func TestLoadedLatencyBenchmarkRun(t *testing.T) {
	ctx := testContext(t)
	plat := newFakePlatform()
	reg := testRegistry()

	spec := Spec{
		Kind:                LoadedLatency,
		NumWorkers:          3,
		WorkingSetPerThread: kernel.BytesPerPass * 8,
		Iterations:          1,
		Desc:                kernel.KernelDesc{Width: kernel.Width64, Stride: 1, Direction: kernel.Forward, Mode: kernel.Read, Pattern: kernel.Sequential},
	}
	b, err := New(spec)
	require.NoError(t, err)

	latencyDesc := kernel.KernelDesc{Width: kernel.Width64, Mode: kernel.Read, Pattern: kernel.Random}
	require.NoError(t, b.RunLoadedLatency(ctx, reg, latencyDesc, plat, power.Noop{}))

	assert.Greater(t, b.MeanPrimary(), 0.0)
	secondary, ok := b.MeanSecondary()
	require.True(t, ok)
	assert.Greater(t, secondary, 0.0)
}
