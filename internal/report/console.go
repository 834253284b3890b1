package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jaml/xmembench/internal/bench"
)

// ConsoleWriter prints a verbose per-benchmark, per-iteration table, grounded
// on the teacher's tabwriter usage in cmd/consumption/main.go's
// newTable/printTableHeader/printTableRow.
type ConsoleWriter struct {
	tw      *tabwriter.Writer
	verbose bool
}

// NewConsoleWriter wraps dst. When verbose is false, each benchmark gets
// only its header line and its mean summary line, without per-iteration rows.
func NewConsoleWriter(dst io.Writer, verbose bool) *ConsoleWriter {
	return &ConsoleWriter{
		tw:      tabwriter.NewWriter(dst, 0, 0, 2, ' ', 0),
		verbose: verbose,
	}
}

// WriteBenchmark prints b's header line and, in verbose mode, one row per
// iteration with its warning flag (worker warning notes are not printed);
// always ends with the mean summary line.
func (c *ConsoleWriter) WriteBenchmark(b *bench.Benchmark) {
	spec := b.Spec
	workingSet := humanizeWorkingSet(spec.WorkingSetPerThread)
	fmt.Fprintf(c.tw, "#%d\t%s\t%s\tcpu=%d mem=%d workers=%d workingset=%s\n",
		spec.Index, spec.Name, spec.Kind, spec.CPUNode, spec.MemNode, spec.NumWorkers, workingSet)

	if c.verbose {
		fmt.Fprintln(c.tw, "iter\tprimary\tsecondary\twarning")
		for i, it := range b.Iterations() {
			sec := "-"
			if it.Secondary != nil {
				sec = fmt.Sprintf("%.3f", *it.Secondary)
			}
			fmt.Fprintf(c.tw, "%d\t%.3f\t%s\t%v\n", i, it.Primary, sec, it.Warning)
		}
	}

	secSummary := "-"
	if mean, ok := b.MeanSecondary(); ok {
		secSummary = fmt.Sprintf("%.3f", mean)
	}
	fmt.Fprintf(c.tw, "mean\t%.3f\t%s\twarning=%v\n", b.MeanPrimary(), secSummary, b.Warning())
	c.tw.Flush()
}

// humanizeWorkingSet formats a per-thread working-set size (spec.md §3) for
// the benchmark header line in the largest of KiB/MiB/GiB/TiB that fits, at
// a fixed two-decimal precision; sizes that are not a whole number of
// hundredths of that unit are rounded (4100 KiB prints as "4.00 MiB").
func humanizeWorkingSet(bytes int) string {
	v := float64(bytes)
	switch {
	case bytes >= 1<<40:
		return fmt.Sprintf("%.2f TiB", v/(1<<40))
	case bytes >= 1<<30:
		return fmt.Sprintf("%.2f GiB", v/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.2f MiB", v/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.2f KiB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
