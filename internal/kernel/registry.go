package kernel

import "fmt"

// Pair bundles a live kernel with its dummy, the unit the worker protocol
// of spec.md §4.5 actually consumes.
type Pair struct {
	Live  Kernel
	Dummy Kernel
}

// Registry resolves a KernelDesc (plus MLP, for random kernels) to its
// (live, dummy) implementation pair. It is populated once by Build, a
// nested loop over every axis rather than a switch tree, per spec.md §9.
type Registry struct {
	seq  map[KernelDesc]Pair
	rand map[randKey]Pair
}

type randKey struct {
	desc KernelDesc
	mlp  int
}

// Build constructs a Registry covering every sequential (width, stride,
// direction, mode) combination for the given widths/strides, plus every
// random (width=64, mode, mlp) combination. 32-bit random kernels are
// omitted on 64-bit platforms per spec.md §4.6 ("skipping 32-bit-chunk ×
// random on 64-bit platforms (unsupported combination)").
func Build(widths []Width, strideMagnitudes []int, mlps []int, delays []int, is64BitPlatform bool) *Registry {
	r := &Registry{seq: map[KernelDesc]Pair{}, rand: map[randKey]Pair{}}

	directions := []Direction{Forward, Reverse}
	modes := []Mode{Read, Write}

	for _, w := range widths {
		for _, mag := range strideMagnitudes {
			for _, dir := range directions {
				for _, mode := range modes {
					desc := KernelDesc{Width: w, Stride: mag, Direction: dir, Mode: mode, Pattern: Sequential}
					r.seq[desc] = Pair{Live: NewSequential(desc), Dummy: NewSequentialDummy(desc)}

					for _, d := range delays {
						dd := desc
						dd.Delay = d
						dummyDelay := foldedDummyDelay(d)
						liveK := NewSequential(dd)
						dummyDesc := dd
						dummyDesc.Delay = dummyDelay
						r.seq[dd] = Pair{Live: liveK, Dummy: NewSequentialDummy(dummyDesc)}
					}
				}
			}
		}
	}

	for _, mode := range modes {
		for _, mlp := range mlps {
			if is64BitPlatform {
				// 32-bit random chunks are unsupported on 64-bit platforms:
				// the pointer chain is always native-word sized.
				continue
			}
			desc := KernelDesc{Width: Width32, Mode: mode, Pattern: Random}
			r.rand[randKey{desc, mlp}] = Pair{Live: NewRandom(desc, mlp), Dummy: NewRandomDummy(desc, mlp)}
		}
		for _, mlp := range mlps {
			desc := KernelDesc{Width: Width64, Mode: mode, Pattern: Random}
			r.rand[randKey{desc, mlp}] = Pair{Live: NewRandom(desc, mlp), Dummy: NewRandomDummy(desc, mlp)}
		}
	}

	return r
}

// foldedDummyDelay implements the Delay512plus behavior flagged in
// spec.md §9: for delays at or above the threshold, a single dummy delay
// count is shared across the tail of the delay axis, a deliberately
// conservative over-subtraction. Kernel.Invoke's caller is responsible for
// surfacing DummyDelayMismatch to the worker's warning/notes when Delay !=
// dummy's folded value.
const delay512PlusThreshold = 512

func foldedDummyDelay(d int) int {
	if d >= delay512PlusThreshold {
		return delay512PlusThreshold
	}
	return d
}

// DummyDelayMismatch reports whether desc's live delay count differs from
// the dummy's folded delay count, i.e. whether adjusted-tick subtraction for
// this kernel is conservative rather than exact.
func DummyDelayMismatch(desc KernelDesc) bool {
	return desc.Delay != foldedDummyDelay(desc.Delay)
}

// Sequential looks up the (live, dummy) pair for a sequential descriptor.
func (r *Registry) Sequential(desc KernelDesc) (Pair, error) {
	p, ok := r.seq[desc]
	if !ok {
		return Pair{}, fmt.Errorf("%w: %s", ErrUnavailable, desc)
	}
	return p, nil
}

// Random looks up the (live, dummy) pair for a random descriptor and MLP.
func (r *Registry) Random(desc KernelDesc, mlp int) (Pair, error) {
	p, ok := r.rand[randKey{desc, mlp}]
	if !ok {
		return Pair{}, fmt.Errorf("%w: %s mlp=%d", ErrUnavailable, desc, mlp)
	}
	return p, nil
}
