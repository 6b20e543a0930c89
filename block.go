package arena

import "unsafe"

// MaxAlignment is the alignment guaranteed for every block returned by a
// BlockProvider and for the implementation header every block stack
// prepends to it. It mirrors the platform's maximum scalar alignment.
const MaxAlignment = unsafe.Alignof(struct {
	_ complex128
}{})

// Block is a contiguous region of memory with a starting address and a
// length. Blocks are allocated and freed only through a BlockProvider and
// are never split by the provider; all sub-division is the job of the
// allocators built on top of it.
type Block struct {
	Memory unsafe.Pointer
	Size   uintptr
}

// Contains reports whether addr falls inside the block.
func (b Block) Contains(addr unsafe.Pointer) bool {
	start := uintptr(b.Memory)
	end := start + b.Size
	a := uintptr(addr)
	return a >= start && a < end
}

// BlockProvider is the external collaborator the core consumes to obtain
// raw, page- or heap-granularity memory. Implementations live outside the
// core (see package providers); the core only ever calls AllocateBlock,
// DeallocateBlock and NextBlockSize.
//
// Contract: AllocateBlock returns a Block aligned to MaxAlignment and of
// exactly the size NextBlockSize reported before the call. Any growth
// policy (e.g. geometric doubling) is the provider's own concern.
type BlockProvider interface {
	// AllocateBlock returns a new block or fails with *OutOfMemoryError /
	// *OutOfFixedMemoryError.
	AllocateBlock() (Block, error)

	// DeallocateBlock releases a block previously returned by
	// AllocateBlock. It is infallible.
	DeallocateBlock(Block)

	// NextBlockSize reports the size that the next call to AllocateBlock
	// will produce. It is a pure query.
	NextBlockSize() uintptr
}

// alignOffset returns the number of padding bytes needed to advance ptr to
// the next address aligned to alignment, which must be a power of two.
//
// Note this deliberately avoids the naive misaligned * (alignment -
// misaligned) formula, which is wrong in general; this uses the correct
// two's-complement form.
func alignOffset(ptr unsafe.Pointer, alignment uintptr) uintptr {
	misaligned := uintptr(ptr) & (alignment - 1)
	if misaligned == 0 {
		return 0
	}
	return (alignment - misaligned) & (alignment - 1)
}

// alignmentFor returns the alignment derived from a node size: the largest
// power of two dividing size, capped at MaxAlignment, with a floor of
// pointer alignment.
func alignmentFor(size uintptr) uintptr {
	align := uintptr(unsafe.Sizeof(uintptr(0)))
	for align < MaxAlignment && size%(align<<1) == 0 {
		align <<= 1
	}
	return align
}

func roundUp(n, multiple uintptr) uintptr {
	if multiple == 0 {
		return n
	}
	rem := n % multiple
	if rem == 0 {
		return n
	}
	return n + multiple - rem
}
