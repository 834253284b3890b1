package kernel

import "encoding/binary"

// PointerWidth is the native word width used for pointer-chain links.
const PointerWidth = 8

// RandKernel is the Random half of the Kernel sum type: it drives MLP
// independent dependent-load chains through a pointer permutation built by
// the chain package, stopping after BytesPerPass worth of traversal per
// pass. Reads load the next pointer; writes store a derived value and then
// re-read it to preserve the chain, per spec.md §4.3.
type RandKernel struct {
	desc  KernelDesc
	mlp   int
	dummy bool
	sink  sink
	// starts holds the mlp independent chain cursors, seeded lazily from
	// Cursor.Next on first Invoke and advanced thereafter.
	starts []uint64
	seeded bool
}

// NewRandom builds a live random kernel with the given MLP.
func NewRandom(desc KernelDesc, mlp int) *RandKernel {
	return &RandKernel{desc: desc, mlp: mlp}
}

// NewRandomDummy builds the paired dummy: identical loop and chain-walking
// skeleton, the memory operation replaced by a no-op of equivalent cost.
func NewRandomDummy(desc KernelDesc, mlp int) *RandKernel {
	return &RandKernel{desc: desc, mlp: mlp, dummy: true}
}

func (k *RandKernel) Desc() KernelDesc  { return k.desc }
func (k *RandKernel) BytesPerPass() int { return BytesPerPass }

// AccessesPerPass is BytesPerPass expressed in pointer-width accesses,
// matching spec.md §4.6's "accesses_per_pass = bytes_per_pass / pointer_width".
func (k *RandKernel) AccessesPerPass() int { return BytesPerPass / PointerWidth }

// Invoke runs UnrollFactor passes. Each pass advances every one of the mlp
// chains by AccessesPerPass/mlp steps, so the aggregate traversal per pass
// is BytesPerPass regardless of mlp, keeping passes comparable across MLP
// settings.
func (k *RandKernel) Invoke(region []byte, cur *Cursor) int {
	n := len(region) / PointerWidth
	if n == 0 {
		return UnrollFactor
	}
	if !k.seeded {
		k.starts = seedChains(cur.Next, n, k.mlp)
		k.seeded = true
	}
	stepsPerChain := (BytesPerPass / PointerWidth) / k.mlp
	if stepsPerChain == 0 {
		stepsPerChain = 1
	}

	for i := 0; i < UnrollFactor; i++ {
		for c := 0; c < k.mlp; c++ {
			k.starts[c] = k.walkChain(region, k.starts[c], stepsPerChain)
		}
		if k.desc.Delay > 0 {
			spinDelay(k.desc.Delay)
		}
	}
	cur.Next = k.starts[0]
	return UnrollFactor
}

// walkChain follows the pointer chain rooted at slot `from` for `steps`
// hops, returning the final slot index.
func (k *RandKernel) walkChain(region []byte, from uint64, steps int) uint64 {
	slot := from
	n := uint64(len(region) / PointerWidth)
	for s := 0; s < steps; s++ {
		off := int(slot) * PointerWidth
		if !k.dummy {
			switch k.desc.Mode {
			case Read:
				idx := binary.LittleEndian.Uint64(region[off : off+PointerWidth])
				k.sink.v += idx
				slot = idx % n
			case Write:
				// Per spec.md §4.3: "writes store a derived value and
				// then re-read to preserve the chain" — the chain link
				// itself must survive the write, so the value stored
				// back is derived from (and equal to) the link just
				// read, not a freshly computed index that would
				// clobber chain.Build's permutation.
				idx := binary.LittleEndian.Uint64(region[off : off+PointerWidth])
				k.sink.v += idx
				binary.LittleEndian.PutUint64(region[off:off+PointerWidth], idx)
				slot = binary.LittleEndian.Uint64(region[off : off+PointerWidth]) % n
			}
		} else {
			// Dummy: same dependent-arithmetic shape, no memory touch.
			k.sink.v = k.sink.v*6364136223846793005 + 1
			slot = (slot + 1) % n
		}
	}
	return slot
}

// seedChains spreads mlp chain starting slots evenly across the slot indices
// [0,n), starting at root. The pointer chain is a random permutation, so
// evenly spaced slot indices are not evenly spaced along the cycle, and the
// chains' working sets may overlap within a pass.
func seedChains(root uint64, n, mlp int) []uint64 {
	if mlp < 1 {
		mlp = 1
	}
	starts := make([]uint64, mlp)
	stride := uint64(n / mlp)
	if stride == 0 {
		stride = 1
	}
	for c := 0; c < mlp; c++ {
		starts[c] = (root + uint64(c)*stride) % uint64(n)
	}
	return starts
}
