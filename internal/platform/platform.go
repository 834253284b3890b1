// Package platform isolates every OS- and ISA-specific primitive the
// benchmark core depends on: the tick counter, CPU affinity, scheduling
// priority, huge-page/NUMA-aware allocation, and topology discovery.
//
// The core never imports build-tagged files directly; it depends only on
// the interfaces declared here. A single linux-tagged implementation backed
// by golang.org/x/sys/unix satisfies them today.
package platform

// Region is a contiguous, page-aligned block of memory under test. It is
// exclusively owned by whatever allocated it; Workers hold non-owning slices
// of its Bytes.
type Region struct {
	Bytes      []byte
	LargePages bool
	MemNode    int
}

// Len returns the region length in bytes.
func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Bytes)
}

// Topology describes the host's CPU/NUMA/page-size shape, per spec.md §4.1.
type Topology struct {
	NumLogicalCPUs int
	NumNUMANodes   int
	PageSize       int
	HugePageSize   int
	// cpusPerNode[n] lists the logical CPUs belonging to NUMA node n.
	cpusPerNode map[int][]int
}

// CPUsInNode returns the logical CPUs belonging to NUMA node n.
func (t Topology) CPUsInNode(n int) []int {
	return t.cpusPerNode[n]
}

// NewTopology builds a Topology from its constituent fields. Exported so
// platform-specific implementations across build tags can share one
// constructor.
func NewTopology(numCPUs, numNodes, pageSize, hugePageSize int, cpusPerNode map[int][]int) Topology {
	if cpusPerNode == nil {
		cpusPerNode = map[int][]int{}
	}
	return Topology{
		NumLogicalCPUs: numCPUs,
		NumNUMANodes:   numNodes,
		PageSize:       pageSize,
		HugePageSize:   hugePageSize,
		cpusPerNode:    cpusPerNode,
	}
}

// Timer reads a monotonic tick counter at the start and stop of a timed
// region. The Linux implementation reads CLOCK_MONOTONIC_RAW through
// clock_gettime and issues no explicit instruction-ordering fences around
// the read.
type Timer interface {
	StartTimer() uint64
	StopTimer() uint64
}

// Affinity pins and unpins the calling OS thread to a logical CPU.
type Affinity interface {
	PinToCPU(logicalCPU int) bool
	UnpinThread() bool
}

// Priority raises and restores the calling thread's scheduling priority.
type Priority interface {
	BoostPriority() bool
	RevertPriority()
}

// Allocator allocates and frees page-aligned regions, optionally huge-page
// backed and/or NUMA-bound.
type Allocator interface {
	AllocRegion(bytes int, memNode int, largePages bool) (*Region, error)
	FreeRegion(r *Region)
}

// TopologyProvider reports the host's CPU/NUMA/page-size shape.
type TopologyProvider interface {
	Topology() Topology
}

// Platform bundles every primitive the worker and configurator need.
type Platform interface {
	Timer
	Affinity
	Priority
	Allocator
	TopologyProvider
}
