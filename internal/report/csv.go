// Package report implements the external-collaborator output adapters of
// spec.md §6/§9: a CSV writer and a verbose console writer, both consuming
// only the bench.Benchmark/bench.Spec types the core already produces.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jaml/xmembench/internal/bench"
	"github.com/jaml/xmembench/internal/kernel"
)

// csvHeader matches spec.md §6's column list: "benchmark number, name, CPU
// node, memory node, worker count, width, stride, pattern, mode, MLP,
// iteration index, primary metric, secondary metric, warning flag", plus
// one trailing summary row per benchmark (iteration column "summary").
var csvHeader = []string{
	"benchmark_number", "name", "cpu_node", "memory_node", "worker_count",
	"width_bits", "stride", "pattern", "mode", "mlp",
	"iteration", "primary_metric", "secondary_metric", "warning",
}

// CSVWriter emits one row per (benchmark × iteration) plus a summary row
// per benchmark, grounded on the teacher's encoding/csv usage in
// cmd/consumption/main.go.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter wraps dst and writes the header row immediately.
func NewCSVWriter(dst io.Writer) (*CSVWriter, error) {
	w := csv.NewWriter(dst)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("report: write csv header: %w", err)
	}
	w.Flush()
	return &CSVWriter{w: w}, nil
}

// WriteBenchmark appends every iteration row for b, then a trailing summary
// row carrying the mean primary/secondary metrics and the benchmark's
// overall warning flag.
func (c *CSVWriter) WriteBenchmark(b *bench.Benchmark) error {
	spec := b.Spec
	pattern := patternString(spec.Desc.Pattern)
	mode := modeString(spec.Desc.Mode)

	for i, it := range b.Iterations() {
		row := []string{
			strconv.FormatUint(spec.Index, 10),
			spec.Name,
			strconv.Itoa(spec.CPUNode),
			strconv.Itoa(spec.MemNode),
			strconv.Itoa(spec.NumWorkers),
			strconv.Itoa(int(spec.Desc.Width)),
			strconv.Itoa(spec.Desc.Stride),
			pattern,
			mode,
			strconv.Itoa(spec.MLP),
			strconv.Itoa(i),
			strconv.FormatFloat(it.Primary, 'f', 6, 64),
			secondaryString(it.Secondary),
			strconv.FormatBool(it.Warning),
		}
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("report: write csv row: %w", err)
		}
	}

	var secondary *float64
	if mean, ok := b.MeanSecondary(); ok {
		secondary = &mean
	}
	summary := []string{
		strconv.FormatUint(spec.Index, 10),
		spec.Name,
		strconv.Itoa(spec.CPUNode),
		strconv.Itoa(spec.MemNode),
		strconv.Itoa(spec.NumWorkers),
		strconv.Itoa(int(spec.Desc.Width)),
		strconv.Itoa(spec.Desc.Stride),
		pattern,
		mode,
		strconv.Itoa(spec.MLP),
		"summary",
		strconv.FormatFloat(b.MeanPrimary(), 'f', 6, 64),
		secondaryString(secondary),
		strconv.FormatBool(b.Warning()),
	}
	if err := c.w.Write(summary); err != nil {
		return fmt.Errorf("report: write csv summary row: %w", err)
	}

	c.w.Flush()
	return c.w.Error()
}

func patternString(p kernel.Pattern) string {
	if p == kernel.Random {
		return "rand"
	}
	return "seq"
}

func modeString(m kernel.Mode) string {
	if m == kernel.Write {
		return "write"
	}
	return "read"
}

func secondaryString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
