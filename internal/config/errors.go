package config

import "errors"

// ErrNoBenchmarkMode indicates neither --latency nor --throughput was
// selected, spec.md §4.7's "at least one benchmark mode is selected".
var ErrNoBenchmarkMode = errors.New("config: no benchmark mode selected (need --latency and/or --throughput)")

// ErrNoPattern indicates neither --sequential_access nor --random_access
// was selected.
var ErrNoPattern = errors.New("config: no access pattern selected (need --sequential_access and/or --random_access)")

// ErrNoRWMode indicates neither --reads nor --writes was selected.
var ErrNoRWMode = errors.New("config: no read/write mode selected (need --reads and/or --writes)")

// ErrInvalidWorkingSet indicates --working_set_size was non-positive or not
// a multiple of 4 (KiB), i.e. would not resolve to a multiple-of-4-KiB
// region size.
var ErrInvalidWorkingSet = errors.New("config: invalid working set size: must be a positive multiple of 4 KiB")

// ErrInvalidWorkerCount indicates --num_worker_threads was <1 or exceeded
// the topology's logical CPU count.
var ErrInvalidWorkerCount = errors.New("config: invalid worker thread count")

// ErrInvalidIterations indicates --iterations was <1.
var ErrInvalidIterations = errors.New("config: iterations must be >= 1")

// ErrInvalidNode indicates a --cpu_numa_node_affinity or
// --memory_numa_node_affinity value named a node the topology doesn't have.
var ErrInvalidNode = errors.New("config: invalid NUMA node index")

// ErrInvalidChunkSize indicates a --chunk_size value outside {32,64,128,256,512}.
var ErrInvalidChunkSize = errors.New("config: invalid chunk size")

// ErrInvalidStride indicates a --stride_size value outside {1,2,4,8,16}
// (magnitude; direction is a separate axis).
var ErrInvalidStride = errors.New("config: invalid stride size")

// ErrInvalidMLP indicates a --mlp value outside {1,2,4,6,8,16,32}.
var ErrInvalidMLP = errors.New("config: invalid mlp value")

// ErrInvalidExtension indicates an --extension value naming an extension
// number this build doesn't compile in, per the original X-Mem
// Configurator's "Invalid extension number" rejection.
var ErrInvalidExtension = errors.New("config: invalid extension number")
