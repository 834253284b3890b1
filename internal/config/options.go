package config

// Options is the flat CLI option bag of spec.md §6, populated directly by
// cobra flag binding in cmd/xmembench/main.go. It carries the user's raw
// toggles; Build turns it into a Plan.
type Options struct {
	All bool

	ChunkSizes []int // -c/--chunk_size, repeatable
	Extensions []int // -e/--extension, repeatable; see ExtensionDelayInjectedLoadedLatency

	OutputFile string // -f/--output_file

	BaseTestIndex uint64 // -i/--base_test_index
	NumWorkers    int    // -j/--num_worker_threads

	Latency    bool // -l/--latency
	Throughput bool // -t/--throughput

	Iterations int // -n/--iterations

	RandomAccess     bool // -r/--random_access
	SequentialAccess bool // -s/--sequential_access

	IgnoreNUMA bool // -u/--ignore_numa
	Verbose    bool // -v/--verbose

	WorkingSetSizeKiB int // -w/--working_set_size

	CPUNodes    []int // -C/--cpu_numa_node_affinity, repeatable
	LargePages  bool  // -L/--large_pages
	MemoryNodes []int // -M/--memory_numa_node_affinity, repeatable

	Reads  bool // -R/--reads
	Writes bool // -W/--writes

	Strides []int // -S/--stride_size, repeatable (signed: +1/-1/+2/-2/...)
	MLP     int    // -m/--mlp
}

// Default returns the option bag's documented defaults, per spec.md §4.7:
// latency + throughput on, stride +1, MLP=1, sequential on, reads and
// writes both on, 1 worker, 1 iteration, base index 1.
func Default() Options {
	return Options{
		Latency:           true,
		Throughput:        true,
		SequentialAccess:  true,
		Reads:             true,
		Writes:            true,
		Strides:           []int{1},
		MLP:               1,
		NumWorkers:        1,
		Iterations:        1,
		BaseTestIndex:     1,
		WorkingSetSizeKiB: 4096,
	}
}
