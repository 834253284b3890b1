//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaml/xmembench/internal/bench"
	"github.com/jaml/xmembench/internal/config"
	"github.com/jaml/xmembench/internal/kernel"
	"github.com/jaml/xmembench/internal/platform"
	"github.com/jaml/xmembench/internal/power"
	"github.com/jaml/xmembench/internal/power/rapl"
	"github.com/jaml/xmembench/internal/report"
	"github.com/jaml/xmembench/internal/runtime"
)

// Exit codes per spec.md §6.
const (
	exitSuccess       = 0
	exitArgumentError = -1
	exitInternalError = -2
)

func main() {
	o := config.Default()

	root := &cobra.Command{
		Use:   "xmembench",
		Short: "Memory-subsystem micro-benchmark harness",
		Long: `xmembench measures a host's memory subsystem: unloaded and loaded access
latency, and aggregate read/write throughput, across a chosen matrix of
access-pattern parameters (chunk width, stride, direction, read/write mix,
random vs. sequential, memory-level parallelism, NUMA placement, large
pages, worker count).

Examples:
  xmembench -l -j1 -w4096
  xmembench -l -t -j4 -w65536 -c64 -s -S1 -R -W -u
  xmembench -a -f results.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().BoolVarP(&o.All, "all", "a", false, "enable all default-category benchmarks and all widths/strides")
	root.Flags().IntSliceVarP(&o.ChunkSizes, "chunk_size", "c", nil, "chunk width in bits (32,64,128,256,512); repeatable")
	root.Flags().IntSliceVarP(&o.Extensions, "extension", "e", nil, "enable extension N; repeatable")
	root.Flags().StringVarP(&o.OutputFile, "output_file", "f", "", "emit CSV to path")
	root.Flags().Uint64VarP(&o.BaseTestIndex, "base_test_index", "i", 1, "numbering base for benchmarks")
	root.Flags().IntVarP(&o.NumWorkers, "num_worker_threads", "j", 1, "worker count; must be <= logical CPUs")
	root.Flags().BoolVarP(&o.Latency, "latency", "l", o.Latency, "enable latency benchmark")
	root.Flags().IntVarP(&o.Iterations, "iterations", "n", 1, "iterations per benchmark")
	root.Flags().BoolVarP(&o.RandomAccess, "random_access", "r", false, "include random pattern")
	root.Flags().BoolVarP(&o.SequentialAccess, "sequential_access", "s", o.SequentialAccess, "include sequential pattern")
	root.Flags().BoolVarP(&o.Throughput, "throughput", "t", o.Throughput, "enable throughput benchmark")
	root.Flags().BoolVarP(&o.IgnoreNUMA, "ignore_numa", "u", false, "force UMA (node 0 only)")
	root.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "verbose console output")
	root.Flags().IntVarP(&o.WorkingSetSizeKiB, "working_set_size", "w", o.WorkingSetSizeKiB, "per-thread region size in KiB")
	root.Flags().IntSliceVarP(&o.CPUNodes, "cpu_numa_node_affinity", "C", nil, "include CPU node; repeatable")
	root.Flags().BoolVarP(&o.LargePages, "large_pages", "L", false, "use huge pages")
	root.Flags().IntSliceVarP(&o.MemoryNodes, "memory_numa_node_affinity", "M", nil, "include memory node; repeatable")
	root.Flags().BoolVarP(&o.Reads, "reads", "R", o.Reads, "include read kernels")
	root.Flags().BoolVarP(&o.Writes, "writes", "W", o.Writes, "include write kernels")
	root.Flags().IntSliceVarP(&o.Strides, "stride_size", "S", o.Strides, "stride magnitude (1,2,4,8,16); repeatable")
	root.Flags().IntVarP(&o.MLP, "mlp", "m", o.MLP, "memory-level parallelism value")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(exitArgumentError)
	}
}

func run(parent context.Context, o config.Options) error {
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plat, err := platform.NewLinux()
	if err != nil {
		logger.Error("xmembench: platform init failed", "err", err)
		os.Exit(exitInternalError)
	}
	topo := plat.Topology()

	hugePagesOK, _, err := platform.HugePagesAvailable()
	if err != nil {
		logger.Warn("xmembench: huge page probe failed", "err", err)
	}

	plan, err := config.Build(o, topo, hugePagesOK)
	if err != nil {
		logger.Error("xmembench: configuration rejected", "err", err)
		os.Exit(exitArgumentError)
	}
	for _, w := range plan.Warnings {
		logger.Warn("xmembench: " + w)
	}
	if len(plan.Specs) == 0 {
		logger.Error("xmembench: no benchmarks enumerated")
		os.Exit(exitArgumentError)
	}

	rtCtx, err := runtime.New(plat, logger, o.Verbose)
	if err != nil {
		logger.Error("xmembench: timer calibration failed", "err", err)
		os.Exit(exitInternalError)
	}

	registry := kernel.Build(kernel.AllWidths, kernel.AllStrideMagnitudes, kernel.AllMLP, plan.Delays, true)

	var sampler power.Sampler = power.Noop{}
	if s, err := rapl.New(0); err == nil {
		sampler = s
	} else {
		logger.Warn("xmembench: RAPL power sampler unavailable, running without power samples", "err", err)
	}

	var csvW *report.CSVWriter
	if o.OutputFile != "" {
		f, err := os.Create(o.OutputFile)
		if err != nil {
			logger.Error("xmembench: create output file", "err", err)
			os.Exit(exitInternalError)
		}
		defer f.Close()
		csvW, err = report.NewCSVWriter(f)
		if err != nil {
			logger.Error("xmembench: write csv header", "err", err)
			os.Exit(exitInternalError)
		}
	}
	console := report.NewConsoleWriter(os.Stdout, o.Verbose)

	anySucceeded := false
	for _, spec := range plan.Specs {
		if ctx.Err() != nil {
			logger.Warn("xmembench: interrupted, stopping before remaining benchmarks")
			break
		}

		b, err := bench.New(spec)
		if err != nil {
			logger.Warn("xmembench: skipping benchmark", "name", spec.Name, "err", err)
			continue
		}

		if err := runOne(rtCtx, registry, plat, sampler, b); err != nil {
			logger.Warn("xmembench: benchmark failed", "name", spec.Name, "err", err)
			continue
		}
		anySucceeded = true

		console.WriteBenchmark(b)
		if csvW != nil {
			if err := csvW.WriteBenchmark(b); err != nil {
				logger.Warn("xmembench: csv write failed", "name", spec.Name, "err", err)
			}
		}
	}

	if !anySucceeded {
		return fmt.Errorf("xmembench: no benchmark produced a valid result")
	}
	return nil
}

// runOne dispatches spec to the matching driver method, per spec.md §4.6.
func runOne(rtCtx *runtime.Context, registry *kernel.Registry, plat platform.Platform, sampler power.Sampler, b *bench.Benchmark) error {
	switch b.Spec.Kind {
	case bench.Throughput:
		return b.RunThroughput(rtCtx, registry, plat, sampler)
	case bench.Latency:
		return b.RunLatency(rtCtx, registry, plat, sampler)
	case bench.LoadedLatency:
		latencyDesc := kernel.KernelDesc{Width: kernel.Width64, Mode: kernel.Read, Pattern: kernel.Random}
		return b.RunLoadedLatency(rtCtx, registry, latencyDesc, plat, sampler)
	default:
		return fmt.Errorf("xmembench: unknown benchmark kind %v", b.Spec.Kind)
	}
}
