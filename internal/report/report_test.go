package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jaml/xmembench/internal/bench"
	"github.com/jaml/xmembench/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBenchmark(t *testing.T, kind bench.Kind) *bench.Benchmark {
	t.Helper()
	spec := bench.Spec{
		Kind:       kind,
		Index:      1,
		Name:       "test-benchmark",
		NumWorkers: 1,
		Iterations: 2,
		Desc:       kernel.KernelDesc{Width: kernel.Width64, Stride: 1, Mode: kernel.Read, Pattern: kernel.Sequential},
	}
	if kind == bench.LoadedLatency {
		spec.NumWorkers = 2
	}
	b, err := bench.New(spec)
	require.NoError(t, err)
	return b
}

func TestCSVWriterWritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	require.NoError(t, err)

	b := testBenchmark(t, bench.Throughput)
	require.NoError(t, w.WriteBenchmark(b))

	out := buf.String()
	assert.Contains(t, out, "benchmark_number")
	assert.Contains(t, out, "test-benchmark")
	assert.Contains(t, out, "summary")
}

func TestConsoleWriterVerboseIncludesIterations(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConsoleWriter(&buf, true)

	b := testBenchmark(t, bench.Throughput)
	cw.WriteBenchmark(b)

	out := buf.String()
	assert.Contains(t, out, "test-benchmark")
	assert.Contains(t, out, "mean")
}

func TestHumanizeWorkingSet(t *testing.T) {
	assert.Equal(t, "512 B", humanizeWorkingSet(512))
	assert.Equal(t, "4.00 KiB", humanizeWorkingSet(4*1024))
	assert.Equal(t, "128.00 MiB", humanizeWorkingSet(128*1024*1024))
	assert.Equal(t, "2.00 GiB", humanizeWorkingSet(2*1024*1024*1024))
}

func TestConsoleWriterNonVerboseSkipsIterationRows(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConsoleWriter(&buf, false)

	b := testBenchmark(t, bench.Throughput)
	cw.WriteBenchmark(b)

	out := buf.String()
	assert.False(t, strings.Contains(out, "iter"))
	assert.Contains(t, out, "mean")
}
