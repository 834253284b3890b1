package bench

import (
	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/internal/runtime"
	"github.com/jaml/xmembench/internal/worker"
)

// RunThroughput executes the throughput benchmark of spec.md §4.6: every
// worker is a load worker running the same kernel against its own
// disjoint region. The per-iteration metric is
//
//	Σ_workers(passes × bytes_per_pass) / MB ÷ (mean_adjusted_ticks × ns_per_tick / 1e9)
func (b *Benchmark) RunThroughput(ctx *runtime.Context, reg *kernel.Registry, plat platform.Allocator, sampler power.Sampler) error {
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
		wps := make([]workerPlan, b.Spec.NumWorkers)
		for i := range wps {
			wps[i] = workerPlan{
				region:   regions[i].Bytes,
				live:     pair.Live,
				dummy:    pair.Dummy,
				affinity: b.Spec.CPUAffinityPerWorker[i],
			}
		}
		return wps
	}

	metric := func(results []worker.Result) IterationResult {
		return IterationResult{Primary: throughputMBps(results, ctx)}
	}

	return b.runIterations(ctx, sampler, plans, metric)
}

// throughputMBps implements spec.md §4.6's throughput formula.
func throughputMBps(results []worker.Result, ctx *runtime.Context) float64 {
	if len(results) == 0 {
		return 0
	}
	var totalBytes float64
	var sumAdjustedTicks float64
	for _, r := range results {
		totalBytes += float64(r.Passes) * float64(r.BytesPerPass)
		sumAdjustedTicks += float64(r.AdjustedTicks())
	}
	meanAdjustedTicks := sumAdjustedTicks / float64(len(results))
	seconds := meanAdjustedTicks * ctx.Calibration.NsPerTick / 1e9
	if seconds <= 0 {
		return 0
	}
	const mb = 1024 * 1024
	return (totalBytes / mb) / seconds
}
