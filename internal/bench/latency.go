package bench

import (
	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/internal/runtime"
	"github.com/jaml/xmembench/internal/worker"
)

// RunLatency executes the unloaded latency benchmark of spec.md §4.6: a
// single worker walks a random 64-bit pointer chain with MLP=1, and the
// per-iteration metric is mean nanoseconds per access.
func (b *Benchmark) RunLatency(ctx *runtime.Context, reg *kernel.Registry, plat platform.Allocator, sampler power.Sampler) error {
	regions, err := allocateRegions(plat, b.Spec)
	if err != nil {
		return err
	}
	defer freeRegions(plat, regions)

	pair, kerr := resolvePair(reg, b.Spec.Desc, b.Spec.MLP)
	if kerr != nil {
		return kerr
	}

	plans := func(uint64) []workerPlan {
		return []workerPlan{{
			region:   regions[0].Bytes,
			live:     pair.Live,
			dummy:    pair.Dummy,
			affinity: b.Spec.CPUAffinityPerWorker[0],
		}}
	}

	metric := func(results []worker.Result) IterationResult {
		return IterationResult{Primary: latencyNsPerAccess(results[0], ctx)}
	}

	return b.runIterations(ctx, sampler, plans, metric)
}

// latencyNsPerAccess implements spec.md §4.6's latency formula:
// adjusted_ticks × ns_per_tick ÷ (passes × accesses_per_pass).
func latencyNsPerAccess(r worker.Result, ctx *runtime.Context) float64 {
	accessesPerPass := r.BytesPerPass / kernel.PointerWidth
	totalAccesses := float64(r.Passes) * float64(accessesPerPass)
	if totalAccesses <= 0 {
		return 0
	}
	adjustedNs := float64(r.AdjustedTicks()) * ctx.Calibration.NsPerTick
	return adjustedNs / totalAccesses
}
