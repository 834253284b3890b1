// Package worker implements the thread-runnable unit of spec.md §4.5/§C5:
// a Worker owns a memory region view, a kernel pair, an optional CPU
// affinity, and publishes its Result once, at join.
package worker

import (
	goruntime "runtime"
	"sync"

	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/runtime"
)

// primeSweeps is the number of forward sequential 32-bit read passes run
// before timing begins, per spec.md §4.5 step 4.
const primeSweeps = 4

// MinElapsedTicksMS is the minimum live measurement window below which a
// result is flagged suspect, per spec.md §4.5 step 7.
const MinElapsedTicksMS = 10

// Result is the per-worker record of spec.md §3, written only by the
// worker's own goroutine and read by the driver only after the worker's
// goroutine has returned (the join barrier establishes the happens-before;
// the mutex exists only so a driver that polls mid-run never observes a
// torn struct).
type Result struct {
	Passes            uint64
	BytesPerPass      int
	ElapsedTicks      uint64
	ElapsedDummyTicks uint64
	Warning           bool
	WarningNotes      []string
	Completed         bool
}

// AdjustedTicks is elapsed_ticks minus elapsed_dummy_ticks, per spec.md §3.
func (r Result) AdjustedTicks() int64 {
	return int64(r.ElapsedTicks) - int64(r.ElapsedDummyTicks)
}

// Config is a Worker's construction-time configuration. Every field is
// unexported-immutable after New: spec.md §9's design note observes the
// source's per-run config snapshot under lock is unnecessary if fields
// never change after construction, so they don't here.
type Config struct {
	Region      []byte
	CPUAffinity int // -1 means "no affinity pin requested"
	Live        kernel.Kernel
	Dummy       kernel.Kernel
	ChainSeed   uint64 // only meaningful when Live.Desc().Pattern == kernel.Random
	Ctx         *runtime.Context
}

// Worker runs one kernel pair against one region view on its own OS thread.
type Worker struct {
	cfg Config

	mu     sync.Mutex
	result Result
	ran    bool
}

// New constructs a Worker. The region, kernel pair, and affinity are fixed
// for the worker's lifetime.
func New(cfg Config) *Worker {
	return &Worker{cfg: cfg}
}

// Run executes the full protocol of spec.md §4.5 steps 1-8. It must be
// called on a goroutine that owns its OS thread exclusively
// (runtime.LockOSThread), since CPU affinity and scheduling priority are
// thread-local OS resources.
func (w *Worker) Run() error {
	w.mu.Lock()
	if w.ran {
		w.mu.Unlock()
		return ErrAlreadyRun
	}
	w.ran = true
	w.mu.Unlock()

	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	plat := w.cfg.Ctx.Platform
	logger := w.cfg.Ctx.Logger

	var warning bool
	var notes []string

	if w.cfg.CPUAffinity >= 0 {
		if !plat.PinToCPU(w.cfg.CPUAffinity) {
			warning = true
			notes = append(notes, "affinity pin failed")
			logger.Warn("worker: pin_to_cpu failed", "cpu", w.cfg.CPUAffinity)
		}
	}
	if !plat.BoostPriority() {
		warning = true
		notes = append(notes, "priority boost failed")
		logger.Warn("worker: boost_priority failed")
	}

	// The pointer chain for random kernels is built by the benchmark
	// driver over this worker's region slice before the worker starts,
	// per spec.md §4.6 step (c); the worker only walks it.

	w.prime()

	passes, elapsedTicks := w.runLive(plat)
	elapsedDummyTicks := w.runDummy(plat, passes)

	adjusted := int64(elapsedTicks) - int64(elapsedDummyTicks)

	if elapsedDummyTicks >= elapsedTicks ||
		elapsedTicks < uint64(w.cfg.Ctx.Calibration.TicksPerMs*MinElapsedTicksMS) ||
		float64(adjusted) < 0.5*float64(elapsedTicks) {
		warning = true
		notes = append(notes, "timing heuristic: suspect measurement")
	}
	if kernel.DummyDelayMismatch(w.cfg.Live.Desc()) {
		warning = true
		notes = append(notes, "dummy_delay_mismatch: adjusted ticks are a conservative over-subtraction")
	}

	plat.RevertPriority()
	if w.cfg.CPUAffinity >= 0 {
		plat.UnpinThread()
	}

	w.mu.Lock()
	w.result = Result{
		Passes:            passes,
		BytesPerPass:      w.cfg.Live.BytesPerPass(),
		ElapsedTicks:      elapsedTicks,
		ElapsedDummyTicks: elapsedDummyTicks,
		Warning:           warning,
		WarningNotes:      notes,
		Completed:         true,
	}
	w.mu.Unlock()

	return nil
}

// prime sweeps the region with a forward sequential 32-bit read kernel
// primeSweeps times, warming caches and TLBs and resolving first-touch
// placement, per spec.md §4.5 step 4. One Invoke covers UnrollFactor
// passes, so a region smaller than UnrollFactor×BytesPerPass bytes is
// covered more than once per sweep. Random workers skip priming their
// own chain (the driver already built it immediately before start), but
// still warm the TLB with the same read sweep.
func (w *Worker) prime() {
	primer := kernel.NewSequential(kernel.KernelDesc{
		Width: kernel.Width32, Stride: 1, Direction: kernel.Forward, Mode: kernel.Read, Pattern: kernel.Sequential,
	})
	cur := &kernel.Cursor{}
	bytesPerInvoke := kernel.BytesPerPass * kernel.UnrollFactor
	sweeps := (len(w.cfg.Region) + bytesPerInvoke - 1) / bytesPerInvoke
	for i := 0; i < primeSweeps; i++ {
		for s := 0; s < sweeps; s++ {
			primer.Invoke(w.cfg.Region, cur)
		}
	}
}

// runLive times the live kernel in UnrollFactor-sized batches until
// elapsed_ticks reaches T_target, per spec.md §4.5 step 5.
func (w *Worker) runLive(plat platform.Timer) (passes uint64, elapsedTicks uint64) {
	target := w.cfg.Ctx.Calibration.TargetTicks()
	cur := &kernel.Cursor{Next: w.cfg.ChainSeed}
	for elapsedTicks < target {
		start := plat.StartTimer()
		n := w.cfg.Live.Invoke(w.cfg.Region, cur)
		stop := plat.StopTimer()
		elapsedTicks += stop - start
		passes += uint64(n)
	}
	return passes, elapsedTicks
}

// runDummy runs the dummy kernel for exactly the same number of passes the
// live kernel completed, per spec.md §4.5 step 6.
func (w *Worker) runDummy(plat platform.Timer, targetPasses uint64) uint64 {
	var elapsed uint64
	var done uint64
	cur := &kernel.Cursor{Next: w.cfg.ChainSeed}
	for done < targetPasses {
		start := plat.StartTimer()
		n := w.cfg.Dummy.Invoke(w.cfg.Region, cur)
		stop := plat.StopTimer()
		elapsed += stop - start
		done += uint64(n)
	}
	return elapsed
}

// Result returns the worker's result record. Safe to call only after Run
// has returned (the caller's join barrier), though the mutex additionally
// guards against a racy peek mid-run.
func (w *Worker) Result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}
