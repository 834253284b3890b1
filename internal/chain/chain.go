// Package chain builds the random permutation pointer-chain that random
// kernels follow for latency and random-throughput measurement, per
// spec.md §4.4.
package chain

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// PointerWidth is the native word width used for chain links, matching
// kernel.PointerWidth.
const PointerWidth = 8

// ErrChainBuild indicates the region was too small to form a cycle.
var ErrChainBuild = errors.New("chain: region has fewer than 2 pointer-sized slots")

// Build rewrites region in place so that, starting from any slot and
// following the little-endian uint64 value stored there as the next slot
// index, the sequence visits every slot exactly once before returning to
// the start. Slots are indices rather than materialized pointers during
// construction (per spec.md §9's "index-based construction... materialize
// pointers in place at the end"); kernel.RandKernel treats the stored
// values as slot indices directly, which is the materialized form for a
// flat in-process buffer.
//
// seed must be supplied by the caller so that chain construction is
// deterministic per benchmark iteration (for replay) while differing
// across iterations, per spec.md §4.4.
func Build(region []byte, seed uint64) error {
	n := len(region) / PointerWidth
	if n < 2 {
		return fmt.Errorf("%w: %d slots", ErrChainBuild, n)
	}

	perm := permutation(n, seed)

	for i := 0; i < n; i++ {
		from := perm[i]
		to := perm[(i+1)%n]
		putSlot(region, from, uint64(to))
	}
	return nil
}

// permutation returns a uniform random permutation of [0,n) using a
// Fisher-Yates shuffle seeded deterministically from seed.
func permutation(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

func putSlot(region []byte, slot int, v uint64) {
	off := slot * PointerWidth
	for i := 0; i < PointerWidth; i++ {
		region[off+i] = byte(v >> (8 * i))
	}
}

func getSlot(region []byte, slot int) uint64 {
	off := slot * PointerWidth
	var v uint64
	for i := 0; i < PointerWidth; i++ {
		v |= uint64(region[off+i]) << (8 * i)
	}
	return v
}

// Verify walks the chain starting at slot 0 and confirms it visits every
// slot exactly once before returning to 0 on step N+1, the invariant
// asserted in spec.md §8.
func Verify(region []byte) error {
	n := len(region) / PointerWidth
	if n < 2 {
		return fmt.Errorf("%w: %d slots", ErrChainBuild, n)
	}
	visited := make([]bool, n)
	cur := 0
	for step := 0; step < n; step++ {
		if visited[cur] {
			return fmt.Errorf("chain: slot %d revisited at step %d before completing cycle", cur, step)
		}
		visited[cur] = true
		cur = int(getSlot(region, cur))
		if cur < 0 || cur >= n {
			return fmt.Errorf("chain: slot value %d out of range", cur)
		}
	}
	if cur != 0 {
		return fmt.Errorf("chain: cycle of length %d did not return to start, landed on %d", n, cur)
	}
	return nil
}
