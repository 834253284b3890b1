//go:build linux

package platform

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux implements Platform on top of golang.org/x/sys/unix. The standard
// library exposes none of sched_setaffinity, setpriority, mbind, or
// MAP_HUGETLB, so every primitive here goes through the syscall wrapper
// package instead of a hand-rolled cgo shim.
type Linux struct {
	topo Topology
}

// NewLinux probes the host once and returns a ready-to-use Platform.
func NewLinux() (*Linux, error) {
	topo, err := probeTopology()
	if err != nil {
		return nil, fmt.Errorf("platform: probe topology: %w", err)
	}
	return &Linux{topo: topo}, nil
}

// StartTimer reads CLOCK_MONOTONIC_RAW, the closest the syscall layer gets
// to a free-running hardware tick counter without a TSC-reading shim.
func (l *Linux) StartTimer() uint64 { return readClock() }

// StopTimer is identical in shape to StartTimer; the pairing exists so call
// sites read symmetrically around the timed region, matching the
// start/stop pairing in spec.md §4.1.
func (l *Linux) StopTimer() uint64 { return readClock() }

func readClock() uint64 {
	var ts unix.Timespec
	// CLOCK_MONOTONIC_RAW is immune to NTP slew, unlike CLOCK_MONOTONIC.
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1_000_000_000 + uint64(ts.Nsec)
}

// PinToCPU binds the calling OS thread to a single logical CPU. The caller
// must have already called runtime.LockOSThread(); affinity is a
// thread-local OS resource and only applies to the goroutine's carrier
// thread at the moment of the call.
func (l *Linux) PinToCPU(logicalCPU int) bool {
	var set unix.CPUSet
	set.Zero()
	set.Set(logicalCPU)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return false
	}
	return true
}

// UnpinThread restores affinity to every CPU in the topology.
func (l *Linux) UnpinThread() bool {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < l.topo.NumLogicalCPUs; i++ {
		set.Set(i)
	}
	return unix.SchedSetaffinity(0, &set) == nil
}

// BoostPriority sets the calling thread's nice value to -20, the most
// favourable value. It returns false, leaving the priority unchanged, when
// the process may not set -20; no less favourable value is tried.
func (l *Linux) BoostPriority() bool {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, -20) == nil
}

// RevertPriority restores the default nice value.
func (l *Linux) RevertPriority() {
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, 0)
}

// AllocRegion allocates a page-aligned, anonymous, zero-filled mapping,
// optionally huge-page backed and/or bound to a NUMA memory node.
func (l *Linux) AllocRegion(bytes int, memNode int, largePages bool) (*Region, error) {
	if bytes <= 0 {
		return nil, fmt.Errorf("%w: non-positive size", ErrAlloc)
	}
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	if largePages {
		flags |= unix.MAP_HUGETLB
	}
	buf, err := unix.Mmap(-1, 0, bytes, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrAlloc, err)
	}
	if memNode >= 0 && l.topo.NumNUMANodes > 1 {
		if err := bindToNode(buf, memNode); err != nil {
			_ = unix.Munmap(buf)
			return nil, fmt.Errorf("%w: mbind: %v", ErrAlloc, err)
		}
	}
	return &Region{Bytes: buf, LargePages: largePages, MemNode: memNode}, nil
}

// FreeRegion releases a region's backing mapping.
func (l *Linux) FreeRegion(r *Region) {
	if r == nil || r.Bytes == nil {
		return
	}
	_ = unix.Munmap(r.Bytes)
	r.Bytes = nil
}

// Topology returns the host shape probed at construction.
func (l *Linux) Topology() Topology { return l.topo }

func probeTopology() (Topology, error) {
	numCPUs := runtime.NumCPU()
	pageSize := unix.Getpagesize()
	hugePageSize := readHugePageSize()

	cpusPerNode, numNodes := readNUMANodes(numCPUs)

	return NewTopology(numCPUs, numNodes, pageSize, hugePageSize, cpusPerNode), nil
}

// readHugePageSize parses /proc/meminfo's Hugepagesize line, in the same
// bufio.Scanner-over-a-/proc-file style as the teacher's proc readers.
func readHugePageSize() int {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Hugepagesize:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0
		}
		return kb * 1024
	}
	return 0
}

// readNUMANodes enumerates /sys/devices/system/node/node*/cpulist. Hosts
// without NUMA sysfs entries (or non-NUMA hosts) fall back to a single node
// owning every logical CPU.
func readNUMANodes(numCPUs int) (map[int][]int, int) {
	matches, err := filepath.Glob("/sys/devices/system/node/node[0-9]*")
	if err != nil || len(matches) == 0 {
		all := make([]int, numCPUs)
		for i := range all {
			all[i] = i
		}
		return map[int][]int{0: all}, 1
	}

	cpusPerNode := make(map[int][]int, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		idxStr := strings.TrimPrefix(base, "node")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		cpulist, err := os.ReadFile(filepath.Join(m, "cpulist"))
		if err != nil {
			continue
		}
		cpusPerNode[idx] = parseCPUList(strings.TrimSpace(string(cpulist)))
	}
	if len(cpusPerNode) == 0 {
		all := make([]int, numCPUs)
		for i := range all {
			all[i] = i
		}
		return map[int][]int{0: all}, 1
	}
	return cpusPerNode, len(cpusPerNode)
}

// parseCPUList parses kernel cpulist syntax, e.g. "0-3,8,10-11".
func parseCPUList(s string) []int {
	var out []int
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err1 := strconv.Atoi(lo)
			hiN, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				continue
			}
			for i := loN; i <= hiN; i++ {
				out = append(out, i)
			}
		} else if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// bindToNode uses mbind(2) (MPOL_BIND) to restrict the mapping's physical
// backing to a single NUMA node. golang.org/x/sys/unix does not wrap mbind
// directly, so the raw syscall is issued with the documented argument
// layout (addr, len, mode, nodemask, maxnode, flags).
func bindToNode(buf []byte, node int) error {
	if node < 0 || node >= 64 {
		return fmt.Errorf("%w: node %d out of mask range", ErrInvalidNode, node)
	}
	var mask uint64 = 1 << uint(node)
	const mpolBind = 2
	_, _, errno := unix.Syscall6(
		unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		uintptr(mpolBind),
		uintptr(unsafe.Pointer(&mask)),
		65, // maxnode
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}
