// Package bench implements the three benchmark drivers of spec.md §4.6/C6:
// throughput, unloaded latency, and loaded latency. All three share one
// orchestration skeleton (spec.md §4.6 "Orchestration per iteration");
// each supplies only its worker construction and its iteration metric.
package bench

import (
	goruntime "runtime"
	"sync"

	"github.com/jaml/xmembench/internal/chain"
	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/internal/runtime"
	"github.com/jaml/xmembench/internal/worker"
)

// Kind selects which of the three drivers a Benchmark runs.
type Kind int

const (
	Throughput Kind = iota
	Latency
	LoadedLatency
)

func (k Kind) String() string {
	switch k {
	case Throughput:
		return "throughput"
	case Latency:
		return "latency"
	case LoadedLatency:
		return "loaded_latency"
	default:
		return "unknown"
	}
}

// Spec is everything the configurator derives for one benchmark, per
// spec.md §4.7's enumerated cross product.
type Spec struct {
	Kind                 Kind
	Index                uint64
	Name                 string
	CPUNode              int
	MemNode              int
	NumWorkers           int
	WorkingSetPerThread  int // bytes
	Iterations           int
	Desc                 kernel.KernelDesc // load kernel descriptor; Pattern/Mode/Width/Stride/Direction
	MLP                  int
	LargePages           bool
	CPUAffinityPerWorker []int // logical CPU per worker, or -1 for "no pin"
}

// IterationResult is one iteration's contribution to a Benchmark, per
// spec.md §3's "Benchmark record".
type IterationResult struct {
	Primary   float64
	Secondary *float64 // present only for loaded latency's throughput side
	Warning   bool
}

// Benchmark is the per-iteration/overall result record of spec.md §3. A
// benchmark may run at most once; hasRun becomes true exactly then.
type Benchmark struct {
	Spec Spec

	mu         sync.Mutex
	hasRun     bool
	iterations []IterationResult
	warning    bool
}

// New constructs a Benchmark from spec. It validates the loaded-latency
// worker-count invariant of spec.md §3 up front.
func New(spec Spec) (*Benchmark, error) {
	if spec.Kind == LoadedLatency && spec.NumWorkers < 2 {
		return nil, ErrTooFewWorkers
	}
	if spec.CPUAffinityPerWorker == nil {
		spec.CPUAffinityPerWorker = make([]int, spec.NumWorkers)
		for i := range spec.CPUAffinityPerWorker {
			spec.CPUAffinityPerWorker[i] = -1
		}
	}
	return &Benchmark{Spec: spec}, nil
}

// HasRun reports whether one of the Run methods has already started its
// iterations on this benchmark.
func (b *Benchmark) HasRun() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasRun
}

// Iterations returns the per-iteration results recorded so far.
func (b *Benchmark) Iterations() []IterationResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]IterationResult, len(b.iterations))
	copy(out, b.iterations)
	return out
}

// Warning reports whether any worker across any iteration raised a warning.
func (b *Benchmark) Warning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warning
}

// MeanPrimary returns the arithmetic mean of every iteration's primary
// metric, per spec.md §4.6 "After all iterations, arithmetic-mean each
// metric over iterations."
func (b *Benchmark) MeanPrimary() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return mean(b.iterations, func(r IterationResult) float64 { return r.Primary })
}

// MeanSecondary returns the arithmetic mean of every iteration's secondary
// metric, or (0, false) if no iteration recorded one.
func (b *Benchmark) MeanSecondary() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var vals []float64
	for _, r := range b.iterations {
		if r.Secondary != nil {
			vals = append(vals, *r.Secondary)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

func mean(results []IterationResult, f func(IterationResult) float64) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += f(r)
	}
	return sum / float64(len(results))
}

// workerPlan describes one worker's construction for a single iteration.
type workerPlan struct {
	region      []byte
	live, dummy kernel.Kernel
	affinity    int
}

// runIterations is the shared orchestration skeleton of spec.md §4.6: for
// each iteration, optionally start the sampler, construct workers, build
// any random worker's pointer chain, run and join them, compute the
// iteration metric, propagate warnings, and stop the sampler.
func (b *Benchmark) runIterations(
	ctx *runtime.Context,
	sampler power.Sampler,
	plans func(iterSeed uint64) []workerPlan,
	metric func(results []worker.Result) IterationResult,
) error {
	b.mu.Lock()
	if b.hasRun {
		b.mu.Unlock()
		return ErrAlreadyRun
	}
	b.hasRun = true
	b.mu.Unlock()

	for iter := 0; iter < b.Spec.Iterations; iter++ {
		if err := sampler.Start(); err != nil {
			ctx.Logger.Warn("bench: power sampler start failed", "err", err)
		}

		seed := uint64(b.Spec.Index)<<32 | uint64(iter)
		wplans := plans(seed)

		workers := make([]*worker.Worker, len(wplans))
		for i, wp := range wplans {
			chainSeed := seed ^ uint64(i)*0x9E3779B97F4A7C15
			if err := buildChainIfRandom(wp.live.Desc(), wp.region, chainSeed); err != nil {
				return err
			}
			workers[i] = worker.New(worker.Config{
				Region:      wp.region,
				CPUAffinity: wp.affinity,
				Live:        wp.live,
				Dummy:       wp.dummy,
				ChainSeed:   chainSeed,
				Ctx:         ctx,
			})
		}

		var wg sync.WaitGroup
		wg.Add(len(workers))
		for _, w := range workers {
			w := w
			go func() {
				defer wg.Done()
				goruntime.LockOSThread()
				defer goruntime.UnlockOSThread()
				if err := w.Run(); err != nil {
					ctx.Logger.Warn("bench: worker run failed", "err", err)
				}
			}()
		}
		wg.Wait()

		if err := sampler.Stop(); err != nil {
			ctx.Logger.Warn("bench: power sampler stop failed", "err", err)
		}

		results := make([]worker.Result, len(workers))
		for i, w := range workers {
			results[i] = w.Result()
		}

		ir := metric(results)
		for _, r := range results {
			if r.Warning {
				ir.Warning = true
			}
		}

		b.mu.Lock()
		b.iterations = append(b.iterations, ir)
		if ir.Warning {
			b.warning = true
		}
		b.mu.Unlock()
	}
	return nil
}

// allocateRegions allocates one region per worker, each
// Spec.WorkingSetPerThread bytes, bound to Spec.MemNode. Regions live for
// the Benchmark's lifetime (spec.md §3), allocated once and reused across
// iterations; only the pointer chain inside a random worker's region is
// rebuilt each iteration.
func allocateRegions(plat platform.Allocator, spec Spec) ([]*platform.Region, error) {
	regions := make([]*platform.Region, spec.NumWorkers)
	for i := range regions {
		r, err := plat.AllocRegion(spec.WorkingSetPerThread, spec.MemNode, spec.LargePages)
		if err != nil {
			for _, prev := range regions[:i] {
				plat.FreeRegion(prev)
			}
			return nil, err
		}
		regions[i] = r
	}
	return regions, nil
}

func freeRegions(plat platform.Allocator, regions []*platform.Region) {
	for _, r := range regions {
		plat.FreeRegion(r)
	}
}

// buildChainIfRandom builds the pointer chain for region when desc
// describes a random-access kernel, per spec.md §4.6 step (c). Sequential
// kernels are unaffected.
func buildChainIfRandom(desc kernel.KernelDesc, region []byte, seed uint64) error {
	if desc.Pattern != kernel.Random {
		return nil
	}
	return chain.Build(region, seed)
}

// resolvePair looks up desc (plus mlp, for random descriptors) in reg,
// dispatching on Pattern rather than requiring callers to know which
// Registry method applies.
func resolvePair(reg *kernel.Registry, desc kernel.KernelDesc, mlp int) (kernel.Pair, error) {
	if desc.Pattern == kernel.Random {
		return reg.Random(desc, mlp)
	}
	return reg.Sequential(desc)
}
