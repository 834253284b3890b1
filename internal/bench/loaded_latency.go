package bench

import (
	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/internal/runtime"
	"github.com/jaml/xmembench/internal/worker"
)

// RunLoadedLatency executes the loaded latency benchmark of spec.md §4.6:
// worker 0 is the latency probe (random 64-bit, MLP=1), workers 1..N-1
// apply the load kernel against their own regions. The iteration's Primary
// is worker 0's latency; Secondary is the aggregate throughput of the load
// workers. New already rejects NumWorkers < 2 for this Kind.
func (b *Benchmark) RunLoadedLatency(ctx *runtime.Context, reg *kernel.Registry, latencyDesc kernel.KernelDesc, plat platform.Allocator, sampler power.Sampler) error {
	regions, err := allocateRegions(plat, b.Spec)
	if err != nil {
		return err
	}
	defer freeRegions(plat, regions)

	latencyPair, kerr := resolvePair(reg, latencyDesc, 1)
	if kerr != nil {
		return kerr
	}
	loadPair, kerr := resolvePair(reg, b.Spec.Desc, b.Spec.MLP)
	if kerr != nil {
		return kerr
	}

	plans := func(uint64) []workerPlan {
		wps := make([]workerPlan, b.Spec.NumWorkers)
		wps[0] = workerPlan{
			region:   regions[0].Bytes,
			live:     latencyPair.Live,
			dummy:    latencyPair.Dummy,
			affinity: b.Spec.CPUAffinityPerWorker[0],
		}
		for i := 1; i < b.Spec.NumWorkers; i++ {
			wps[i] = workerPlan{
				region:   regions[i].Bytes,
				live:     loadPair.Live,
				dummy:    loadPair.Dummy,
				affinity: b.Spec.CPUAffinityPerWorker[i],
			}
		}
		return wps
	}

	metric := func(results []worker.Result) IterationResult {
		secondary := throughputMBps(results[1:], ctx)
		return IterationResult{
			Primary:   latencyNsPerAccess(results[0], ctx),
			Secondary: &secondary,
		}
	}

	return b.runIterations(ctx, sampler, plans, metric)
}
